package bmc

import (
	"fmt"
	"io"
	"log"
	"runtime"
)

// EngineConfig configures an Engine. There is no config file format --
// callers build the struct directly, with every collaborator as a plain
// exported field.
type EngineConfig struct {
	Executor    SymbolicExecutor
	MainSolver  SmtSolver
	AuxSolver   SmtSolver
	AI          AbstractInterpreter // optional; nil disables the AI path checker.
	MUCStrategy MUCStrategy
	Verbose     bool
}

// CoreStats are the diagnostic counters §6 requires the engine expose.
type CoreStats struct {
	TotalPaths      int
	DischargedByAI  int
	DischargedBySMT int
	MUC             MUCStats
}

// String returns a one-line human-readable summary.
func (s CoreStats) String() string {
	return fmt.Sprintf("paths=%d discharged_by_ai=%d discharged_by_smt=%d muc_calls=%d",
		s.TotalPaths, s.DischargedByAI, s.DischargedBySMT, s.MUC.Calls)
}

// WriteTo writes the same summary String returns, newline-terminated.
func (s CoreStats) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintln(w, s.String())
	return int64(n), err
}

// Engine is the refinement loop. It owns the main and auxiliary solvers,
// drives path enumeration against the Boolean abstraction, and dispatches
// each candidate path to the optional abstract-interpretation path checker
// and then the SMT path checker.
type Engine struct {
	cfg      EngineConfig
	muc      MUC
	checker  *PathChecker
	blocking map[string]bool // blocking-clause set, keyed by canonical string form.
	vc       []Expr
	trace    BmcTrace
	ceModel  Model
	stats    CoreStats
}

// NewEngine returns a new instance of Engine configured by cfg.
func NewEngine(cfg EngineConfig) *Engine {
	muc := NewMUC(cfg.MUCStrategy, cfg.AuxSolver)
	return &Engine{
		cfg:      cfg,
		muc:      muc,
		checker:  &PathChecker{Executor: cfg.Executor, AuxSolver: cfg.AuxSolver, MUC: muc},
		blocking: make(map[string]bool),
	}
}

// Solve runs the refinement loop in §4.7 to completion: it is the engine's
// main entry point.
func (e *Engine) Solve() (Result, error) {
	e.vc = e.cfg.Executor.Encode()
	abstraction := BooleanAbstraction(e.vc)

	e.cfg.MainSolver.Reset()
	for _, f := range abstraction {
		e.cfg.MainSolver.Assert(f)
	}

	for {
		e.stats.TotalPaths++

		result, err := e.cfg.MainSolver.Solve()
		if err != nil {
			return Unknown, err
		}

		switch result {
		case Unsat:
			if e.stats.TotalPaths == 1 {
				log.Printf("[bmc] program is trivially unsat under the initial abstraction")
			}
			return Unsat, nil
		case Unknown:
			return Unknown, nil
		}

		model := e.cfg.MainSolver.Model()
		e.logDebug("[bmc] candidate path #%d", e.stats.TotalPaths)

		if e.cfg.AI != nil {
			trace := e.cfg.Executor.Trace(model)
			bottom, relevant := e.cfg.AI.PathAnalyze(trace)
			if bottom {
				if active, ok := e.activeLiteralsFromStatements(relevant); ok {
					e.stats.DischargedByAI++
					e.logDebug("[bmc] path #%d infeasible under AI: %d active literals", e.stats.TotalPaths, len(active))
					if err := e.addBlockingClause(active); err != nil {
						return Unknown, err
					}
					continue
				}
				// The AI can't map its result back to active literals --
				// fall through to SMT rather than trust an infeasibility
				// claim we can't act on. Only the SMT checker's own mapping
				// gap ends the run, as ErrActiveLiteralGap.
			}
		}

		res, err := e.checker.Check(e.vc, model)
		if err != nil {
			return Unknown, err
		}

		switch res.Result {
		case Sat:
			e.ceModel = res.Model
			e.trace = e.cfg.Executor.Trace(model)
			return Sat, nil
		case Unknown:
			return Unknown, nil
		case Unsat:
			e.stats.DischargedBySMT++
			e.logDebug("[bmc] path #%d infeasible under SMT: %d active literals", e.stats.TotalPaths, len(res.Active))
			if err := e.addBlockingClause(res.Active); err != nil {
				return Unknown, err
			}
		}
	}
}

// Trace returns the counter-example trace after Solve returns Sat.
func (e *Engine) Trace() BmcTrace { return e.trace }

// CounterExample returns the precise-VC model of the counter-example after
// Solve returns Sat.
func (e *Engine) CounterExample() Model { return e.ceModel }

// Stats returns the diagnostic counters accumulated so far.
func (e *Engine) Stats() CoreStats {
	s := e.stats
	s.MUC = e.muc.Stats()
	return s
}

// addBlockingClause builds the blocking clause for active (false if active
// is empty, else the negated conjunction) and asserts it into the main
// solver. It returns ErrStagnation -- aborting the loop with Unknown -- if
// an identical clause was already asserted, since re-deriving the same
// clause means the refinement loop has nothing left to make progress with.
func (e *Engine) addBlockingClause(active []Expr) error {
	var clause Expr
	if len(active) == 0 {
		clause = NewBoolConstantExpr(false)
	} else {
		conj := active[0]
		for _, a := range active[1:] {
			conj = NewBinaryExpr(AND, conj, a)
		}
		clause = NewNotExpr(conj)
	}

	key := clause.String()
	if e.blocking[key] {
		_, file, line, _ := runtime.Caller(1)
		log.Printf("[bmc] stagnation: blocking clause re-derived at %s:%d: %s", file, line, key)
		return ErrStagnation
	}
	e.blocking[key] = true
	e.cfg.MainSolver.Assert(clause)
	return nil
}

// activeLiteralsFromStatements implements §4.6 steps 3-6: translate the AI's
// relevant statements into abstract block/edge literals, then evaluate each
// through the per-cut-point symbolic stores. Returns ok=false if any
// statement or literal cannot be resolved, signaling the caller to fall
// back to the SMT path checker.
func (e *Engine) activeLiteralsFromStatements(stmts []Statement) ([]Expr, bool) {
	var abstractLits []Expr
	for _, st := range stmts {
		switch st.Kind {
		case StmtGeneric, StmtAssumeBlock:
			abstractLits = append(abstractLits, e.cfg.Executor.Symbol(st.Parent))
		case StmtAssumeEdge, StmtPhiAssign:
			abstractLits = append(abstractLits, e.cfg.Executor.Symbol(st.Src))
			abstractLits = append(abstractLits, e.cfg.Executor.EdgeLiteral(st.Src, st.Dst))
		default:
			return nil, false
		}
	}

	stores := e.cfg.Executor.CutPointStores()
	active := make([]Expr, 0, len(abstractLits))
	for _, lit := range abstractLits {
		concrete, ok := evalThroughStores(lit, stores)
		if !ok {
			return nil, false
		}
		active = append(active, concrete)
	}
	return sortDedupExprs(active), true
}

// evalThroughStores scans stores in order and returns the first store's
// evaluation that differs from lit. A tuple-encoded literal is evaluated
// component-wise, since a store's Eval does not descend into declarations.
func evalThroughStores(lit Expr, stores []SymbolicStore) (Expr, bool) {
	if isTuple(lit) {
		src, dst := getTuple(lit)
		evSrc, ok := evalThroughStores(src, stores)
		if !ok {
			return nil, false
		}
		evDst, ok := evalThroughStores(dst, stores)
		if !ok {
			return nil, false
		}
		return NewTupleSymbolExpr(lit.(*SymbolExpr).Name, evSrc, evDst), true
	}

	for _, store := range stores {
		v, ok := store.Eval(lit)
		if !ok {
			continue
		}
		if CompareExpr(v, lit) != 0 {
			return v, true
		}
	}
	return nil, false
}

func (e *Engine) logDebug(format string, args ...interface{}) {
	if e.cfg.Verbose {
		log.Printf(format, args...)
	}
}
