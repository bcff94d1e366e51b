package bmc

import "fmt"

// SymbolExpr is a named, zero-arity Boolean constant: a block symbol b(B), a
// non-critical edge literal, or (when Tuple is set) a critical-edge literal
// manufactured from a TUPLE declaration. Two SymbolExprs are equal iff their
// names are equal; callers are responsible for interning by name.
type SymbolExpr struct {
	Name  string
	Width uint
	Tuple *TupleExpr
}

// TupleExpr is the declaration carried by a tuple-encoded critical-edge
// symbol: the pair of block symbols the edge connects. It is not itself a
// walkable Expr node -- it is metadata hung off the SymbolExpr that owns it.
type TupleExpr struct {
	Src Expr
	Dst Expr
}

func (*SymbolExpr) binding() {}
func (*SymbolExpr) expr() {}

// NewSymbolExpr returns a plain named Boolean symbol, e.g. a block symbol.
func NewSymbolExpr(name string) *SymbolExpr {
	return &SymbolExpr{Name: name, Width: WidthBool}
}

// NewTupleSymbolExpr returns a fresh Boolean symbol tuple-encoded from src
// and dst, used for the literal of a critical CFG edge src->dst.
func NewTupleSymbolExpr(name string, src, dst Expr) *SymbolExpr {
	return &SymbolExpr{Name: name, Width: WidthBool, Tuple: &TupleExpr{Src: src, Dst: dst}}
}

// String returns the string representation of the expression.
func (e *SymbolExpr) String() string {
	if e.Tuple != nil {
		return fmt.Sprintf("(symbol %s (tuple %s %s))", e.Name, e.Tuple.Src, e.Tuple.Dst)
	}
	return fmt.Sprintf("(symbol %s)", e.Name)
}

// isTuple returns true iff e is a Boolean constant whose declaration is a
// TUPLE, i.e. a critical-edge literal.
func isTuple(e Expr) bool {
	sym, ok := e.(*SymbolExpr)
	return ok && sym.Tuple != nil
}

// getTuple returns the (src, dst) pair carried by a tuple-encoded symbol.
func getTuple(e Expr) (src, dst Expr) {
	sym, ok := e.(*SymbolExpr)
	assert(ok && sym.Tuple != nil, "getTuple: not a tuple-encoded symbol: %v", e)
	return sym.Tuple.Src, sym.Tuple.Dst
}

// lessExpr is the total order used to keep MUCs stable under permutation:
// non-tuple expressions sort before tuple-encoded ones; within a class, fall
// back to the native structural ordering.
func lessExpr(a, b Expr) bool {
	at, bt := isTuple(a), isTuple(b)
	if at != bt {
		return !at
	}
	return CompareExpr(a, b) < 0
}

// ImplExpr represents logical implication: LHS -> RHS.
type ImplExpr struct {
	LHS Expr
	RHS Expr
}

func (*ImplExpr) binding() {}
func (*ImplExpr) expr() {}

// NewImplExpr returns a new instance of ImplExpr.
func NewImplExpr(lhs, rhs Expr) Expr {
	assert(ExprWidth(lhs) == WidthBool, "impl: lhs must be boolean, got width %d", ExprWidth(lhs))
	assert(ExprWidth(rhs) == WidthBool, "impl: rhs must be boolean, got width %d", ExprWidth(rhs))
	return &ImplExpr{LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *ImplExpr) String() string {
	return fmt.Sprintf("(=> %s %s)", e.LHS, e.RHS)
}

// IffExpr represents logical biconditional: LHS <-> RHS.
type IffExpr struct {
	LHS Expr
	RHS Expr
}

func (*IffExpr) binding() {}
func (*IffExpr) expr() {}

// NewIffExpr returns a new instance of IffExpr.
func NewIffExpr(lhs, rhs Expr) Expr {
	assert(ExprWidth(lhs) == WidthBool, "iff: lhs must be boolean, got width %d", ExprWidth(lhs))
	assert(ExprWidth(rhs) == WidthBool, "iff: rhs must be boolean, got width %d", ExprWidth(rhs))
	return &IffExpr{LHS: lhs, RHS: rhs}
}

// String returns the string representation of the expression.
func (e *IffExpr) String() string {
	return fmt.Sprintf("(<=> %s %s)", e.LHS, e.RHS)
}

// IteExpr represents an if-then-else term: Cond selects between True and
// False, which must share a width. When that width is WidthBool, pre-NNF
// rewrites this node away; at other widths it is a theory term left for the
// SMT solver.
type IteExpr struct {
	Cond  Expr
	True  Expr
	False Expr
}

func (*IteExpr) binding() {}
func (*IteExpr) expr() {}

// NewIteExpr returns a new instance of IteExpr.
func NewIteExpr(cond, t, f Expr) Expr {
	assert(ExprWidth(cond) == WidthBool, "ite: cond must be boolean, got width %d", ExprWidth(cond))
	assert(ExprWidth(t) == ExprWidth(f), "ite: branch width mismatch: %d != %d", ExprWidth(t), ExprWidth(f))

	if c, ok := cond.(*ConstantExpr); ok {
		if c.IsTrue() {
			return t
		}
		return f
	}
	return &IteExpr{Cond: cond, True: t, False: f}
}

// String returns the string representation of the expression.
func (e *IteExpr) String() string {
	return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.True, e.False)
}
