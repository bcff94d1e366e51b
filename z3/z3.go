package z3

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/pathbmc/pathbmc"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure Solver implements the core's SmtSolver/Model interfaces.
var (
	_ bmc.SmtSolver = (*Solver)(nil)
	_ bmc.Model     = (*Model)(nil)
)

// Solver is the auxiliary SmtSolver backed by Z3: it carries the theory
// atoms (bitvector/array) the Boolean abstraction erases, so it backs the
// SMT path checker and all three MUC engines rather than the main
// enumeration loop.
type Solver struct {
	ctx     *Context
	raw     C.Z3_solver
	tracks  map[string]bmc.Expr // tracking-literal name -> original asserted formula
	trackN  int
	stats   Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	s := &Solver{ctx: NewContext()}
	s.Reset()
	return s
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Reset implements bmc.SmtSolver: it discards every assertion and tracking
// literal, but keeps the Z3 context (and therefore symbol/array identity)
// alive across resets.
func (s *Solver) Reset() {
	if s.raw != nil {
		C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
	}
	s.raw = C.Z3_mk_solver(s.ctx.raw)
	C.Z3_solver_inc_ref(s.ctx.raw, s.raw)
	s.tracks = make(map[string]bmc.Expr)
	s.trackN = 0
}

// Assert implements bmc.SmtSolver. Every formula is asserted through
// Z3_solver_assert_and_track under a fresh tracking literal so that
// UnsatCore can report back the originally-asserted Expr values.
func (s *Solver) Assert(e bmc.Expr) {
	ast, err := s.ctx.toAST(e)
	if err != nil {
		panic(err) // internal invariant: callers only assert well-formed core formulas.
	}

	name := fmt.Sprintf("$track%d", s.trackN)
	s.trackN++
	track, err := s.ctx.makeBoolConst(name)
	if err != nil {
		panic(err)
	}
	s.tracks[name] = e

	C.Z3_solver_assert_and_track(s.ctx.raw, s.raw, ast, track)
	if err := s.ctx.err("Z3_solver_assert_and_track"); err != nil {
		panic(err)
	}
}

// Solve implements bmc.SmtSolver.
func (s *Solver) Solve() (bmc.Result, error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	ret := C.Z3_solver_check(s.ctx.raw, s.raw)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return bmc.Unknown, err
	}

	switch ret {
	case C.Z3_L_FALSE:
		return bmc.Unsat, nil
	case C.Z3_L_TRUE:
		return bmc.Sat, nil
	default:
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
		switch {
		case strings.Contains(reason, "timeout"):
			return bmc.Unknown, bmc.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return bmc.Unknown, bmc.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return bmc.Unknown, bmc.ErrSolverResourceLimit
		default:
			return bmc.Unknown, bmc.ErrSolverUnknown
		}
	}
}

// Model implements bmc.SmtSolver. Only valid after Solve returns Sat.
func (s *Solver) Model() bmc.Model {
	raw := C.Z3_solver_get_model(s.ctx.raw, s.raw)
	return &Model{ctx: s.ctx, raw: raw}
}

// UnsatCore implements bmc.SmtSolver: it maps the Z3 unsat core's tracking
// literals back to the original Expr each was asserted for. Only valid
// after Solve returns Unsat.
func (s *Solver) UnsatCore() []bmc.Expr {
	core := C.Z3_solver_get_unsat_core(s.ctx.raw, s.raw)
	n := int(C.Z3_ast_vector_size(s.ctx.raw, core))

	out := make([]bmc.Expr, 0, n)
	for i := 0; i < n; i++ {
		ast := C.Z3_ast_vector_get(s.ctx.raw, core, C.uint(i))
		sym := C.Z3_get_symbol_string(s.ctx.raw, C.Z3_get_decl_name(s.ctx.raw, C.Z3_get_app_decl(s.ctx.raw, C.Z3_to_app(s.ctx.raw, ast))))
		name := C.GoString(sym)
		if e, ok := s.tracks[name]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Model wraps a Z3 model for evaluating core formulas back into Expr values.
type Model struct {
	ctx *Context
	raw C.Z3_model
}

// Eval implements bmc.Model: it evaluates e against the Z3 model and
// returns the corresponding ConstantExpr.
func (m *Model) Eval(e bmc.Expr) bmc.Expr {
	ast, err := m.ctx.toAST(e)
	if err != nil {
		panic(err)
	}

	var out C.Z3_ast
	if ok := C.Z3_model_eval(m.ctx.raw, m.raw, ast, C.bool(true), &out); !bool(ok) {
		panic("z3: model evaluation failed")
	}

	width := bmc.ExprWidth(e)
	if width == bmc.WidthBool {
		switch C.Z3_get_bool_value(m.ctx.raw, out) {
		case C.Z3_L_TRUE:
			return bmc.NewBoolConstantExpr(true)
		case C.Z3_L_FALSE:
			return bmc.NewBoolConstantExpr(false)
		default:
			return bmc.NewBoolConstantExpr(false)
		}
	}

	var value C.uint64_t
	C.Z3_get_numeral_uint64(m.ctx.raw, out, &value)
	return bmc.NewConstantExpr(uint64(value), width)
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw     C.Z3_context
	symbols map[string]C.Z3_ast // SymbolExpr name -> cached bool const, stable across Resets.
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw, symbols: make(map[string]C.Z3_ast)}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from a core expression.
func (ctx *Context) toAST(expr bmc.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *bmc.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *bmc.NotOptimizedExpr:
		return ctx.toAST(expr.Src)
	case *bmc.SelectExpr:
		return ctx.toSelectAST(expr)
	case *bmc.ConcatExpr:
		return ctx.toConcatAST(expr)
	case *bmc.ExtractExpr:
		return ctx.toExtractAST(expr)
	case *bmc.CastExpr:
		return ctx.toCastAST(expr)
	case *bmc.NotExpr:
		return ctx.toNotAST(expr)
	case *bmc.BinaryExpr:
		return ctx.toBinaryAST(expr)
	case *bmc.SymbolExpr:
		return ctx.makeBoolConst(expr.Name)
	case *bmc.ImplExpr:
		return ctx.toImplAST(expr)
	case *bmc.IffExpr:
		return ctx.toIffAST(expr)
	case *bmc.IteExpr:
		return ctx.toIteAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

func (ctx *Context) toConstantAST(expr *bmc.ConstantExpr) (C.Z3_ast, error) {
	if expr.Width == bmc.WidthBool {
		if expr.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	} else if expr.Width <= 32 {
		return ctx.makeUint(expr.Width, uint32(expr.Value))
	} else if expr.Width <= 64 {
		return ctx.makeUint64(expr.Width, expr.Value)
	}
	return nil, fmt.Errorf("z3.Context.toConstantAST: invalid expression width: %d", expr.Width)
}

func (ctx *Context) toSelectAST(expr *bmc.SelectExpr) (C.Z3_ast, error) {
	array, err := ctx.makeArrayWithUpdate(expr.Array, expr.Array.Updates)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(expr.Index)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_select(ctx.raw, array, index), ctx.err("Z3_mk_select")
}

func (ctx *Context) toConcatAST(expr *bmc.ConcatExpr) (C.Z3_ast, error) {
	msb, err := ctx.toAST(expr.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := ctx.toAST(expr.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, msb, lsb), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toExtractAST(expr *bmc.ExtractExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	if expr.Width == 1 {
		extractExpr := C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset), C.uint(expr.Offset), src)
		if err := ctx.err("Z3_mk_extract[bool]"); err != nil {
			return nil, err
		}
		one, err := ctx.makeUint64(1, 1)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_eq(ctx.raw, extractExpr, one), ctx.err("Z3_mk_eq")
	}

	return C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset+expr.Width-1), C.uint(expr.Offset), src), ctx.err("Z3_mk_extract")
}

func (ctx *Context) toCastAST(expr *bmc.CastExpr) (C.Z3_ast, error) {
	if expr.Signed {
		return ctx.toSignedCastAST(expr)
	}
	return ctx.toUnsignedCastAST(expr)
}

func (ctx *Context) toSignedCastAST(expr *bmc.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.Src) == 1 {
		minusOne := int64(-1)
		whenTrue, err := ctx.makeUint64(expr.Width, uint64(minusOne))
		if err != nil {
			return nil, err
		}
		whenFalse, err := ctx.makeUint64(expr.Width, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(ctx.raw, src, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
	}

	return C.Z3_mk_sign_ext(ctx.raw, C.uint(expr.Width-uint(ctx.bvSize(src))), src), ctx.err("Z3_mk_sign_ext")
}

func (ctx *Context) toUnsignedCastAST(expr *bmc.CastExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.Src) == 1 {
		whenTrue, err := ctx.makeUint64(expr.Width, 1)
		if err != nil {
			return nil, err
		}
		whenFalse, err := ctx.makeUint64(expr.Width, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(ctx.raw, src, whenTrue, whenFalse), ctx.err("Z3_mk_ite")
	}

	padding, err := ctx.makeUint64(expr.Width-ctx.bvSize(src), 0)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, padding, src), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toNotAST(expr *bmc.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.Expr) == 1 {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toImplAST(expr *bmc.ImplExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_implies(ctx.raw, lhs, rhs), ctx.err("Z3_mk_implies")
}

func (ctx *Context) toIffAST(expr *bmc.IffExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
}

func (ctx *Context) toIteAST(expr *bmc.IteExpr) (C.Z3_ast, error) {
	cond, err := ctx.toAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	t, err := ctx.toAST(expr.True)
	if err != nil {
		return nil, err
	}
	f, err := ctx.toAST(expr.False)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, t, f), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toBinaryAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	switch expr.Op {
	case bmc.ADD:
		return ctx.toBinaryAddAST(expr)
	case bmc.SUB:
		return ctx.toBinarySubAST(expr)
	case bmc.MUL:
		return ctx.toBinaryMulAST(expr)
	case bmc.UDIV:
		return ctx.toBinaryUDivAST(expr)
	case bmc.SDIV:
		return ctx.toBinarySDivAST(expr)
	case bmc.UREM:
		return ctx.toBinaryURemAST(expr)
	case bmc.SREM:
		return ctx.toBinarySRemAST(expr)
	case bmc.AND:
		return ctx.toBinaryAndAST(expr)
	case bmc.OR:
		return ctx.toBinaryOrAST(expr)
	case bmc.XOR:
		return ctx.toBinaryXorAST(expr)
	case bmc.SHL:
		return ctx.toBinaryShlAST(expr)
	case bmc.LSHR:
		return ctx.toBinaryLShrAST(expr)
	case bmc.ASHR:
		return ctx.toBinaryAShrAST(expr)
	case bmc.EQ:
		return ctx.toBinaryEqAST(expr)
	case bmc.ULT:
		return ctx.toBinaryUltAST(expr)
	case bmc.ULE:
		return ctx.toBinaryUleAST(expr)
	case bmc.SLT:
		return ctx.toBinarySltAST(expr)
	case bmc.SLE:
		return ctx.toBinarySleAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
}

func (ctx *Context) toBinaryAddAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvadd(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvadd")
}

func (ctx *Context) toBinarySubAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvsub(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsub")
}

func (ctx *Context) toBinaryMulAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvmul(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvmul")
}

func (ctx *Context) toBinaryUDivAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvudiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvudiv")
}

func (ctx *Context) toBinarySDivAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsdiv")
}

func (ctx *Context) toBinaryURemAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvurem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvurem")
}

func (ctx *Context) toBinarySRemAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvsrem(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsrem")
}

func (ctx *Context) toBinaryAndAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.LHS) == 1 {
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	}
	return C.Z3_mk_bvand(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvand")
}

func (ctx *Context) toBinaryOrAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.LHS) == 1 {
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	}
	return C.Z3_mk_bvor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvor")
}

func (ctx *Context) toBinaryXorAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	if bmc.ExprWidth(expr.LHS) == 1 {
		return C.Z3_mk_xor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_xor")
	}

	return C.Z3_mk_bvxor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvxor")
}

func (ctx *Context) toBinaryShlAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvshl(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvshl")
}

func (ctx *Context) toBinaryLShrAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvlshr(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvlshr")
}

func (ctx *Context) toBinaryAShrAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvashr(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvashr")
}

func (ctx *Context) toBinaryEqAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	if bmc.ExprWidth(expr.LHS) == 1 {
		return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
	}
	return C.Z3_mk_eq(ctx.raw, lhs, rhs), ctx.err("Z3_mk_eq")
}

func (ctx *Context) toBinaryUltAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvult(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvult")
}

func (ctx *Context) toBinaryUleAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvule(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvule")
}

func (ctx *Context) toBinarySltAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvslt(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvslt")
}

func (ctx *Context) toBinarySleAST(expr *bmc.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvsle(ctx.raw, lhs, rhs), ctx.err("Z3_mk_bvsle")
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

// makeBoolConst returns the (cached) Boolean constant for a SymbolExpr's name.
func (ctx *Context) makeBoolConst(name string) (C.Z3_ast, error) {
	if ast, ok := ctx.symbols[name]; ok {
		return ast, nil
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	sym := C.Z3_mk_string_symbol(ctx.raw, cname)
	sort := C.Z3_mk_bool_sort(ctx.raw)
	ast := C.Z3_mk_const(ctx.raw, sym, sort)
	if err := ctx.err("Z3_mk_const[bool]"); err != nil {
		return nil, err
	}
	ctx.symbols[name] = ast
	return ast, nil
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint(width uint, value uint32) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int(ctx.raw, C.uint(value), t), ctx.err("Z3_mk_unsigned_int")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.ulonglong(value), t), ctx.err("Z3_mk_unsigned_int64")
}

func (ctx *Context) bvSize(expr C.Z3_ast) uint {
	t := C.Z3_get_sort(ctx.raw, expr)
	if err := ctx.err("Z3_get_sort"); err != nil {
		panic(err)
	}
	return ctx.bvSortSize(t)
}

// bvSortSize returns the size of t in bits. Panic if t is not a bit-vector sort.
func (ctx *Context) bvSortSize(t C.Z3_sort) uint {
	sz := uint(C.Z3_get_bv_sort_size(ctx.raw, t))
	if err := ctx.err("Z3_get_bv_sort_size"); err != nil {
		panic(err)
	}
	return sz
}

// makeArrayConst returns the root constant array with no updates.
func (ctx *Context) makeArrayConst(array *bmc.Array) (C.Z3_ast, error) {
	domainSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(bmc.Width64))
	if err := ctx.err("Z3_mk_bv_sort[domain]"); err != nil {
		return nil, err
	}
	rangeSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(bmc.Width8))
	if err := ctx.err("Z3_mk_bv_sort[range]"); err != nil {
		return nil, err
	}
	arraySort := C.Z3_mk_array_sort(ctx.raw, domainSort, rangeSort)
	if err := ctx.err("Z3_mk_array_sort"); err != nil {
		return nil, err
	}

	cname := C.CString(arrayName(array))
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, arraySort), ctx.err("Z3_mk_const")
}

// makeArrayWithUpdate returns an array with updates recursively applied.
func (ctx *Context) makeArrayWithUpdate(root *bmc.Array, upd *bmc.ArrayUpdate) (C.Z3_ast, error) {
	if upd == nil {
		return ctx.makeArrayConst(root)
	}

	array, err := ctx.makeArrayWithUpdate(root, upd.Next)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toAST(upd.Index)
	if err != nil {
		return nil, err
	}
	value, err := ctx.toAST(upd.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(ctx.raw, array, index, value), ctx.err("Z3_mk_store")
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

func arrayName(array *bmc.Array) string {
	return fmt.Sprintf("A%d", array.ID)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds cumulative solve-call counters for one Solver instance.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
