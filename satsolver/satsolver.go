// Package satsolver backs the refinement loop's main solver (the Boolean
// abstraction and its growing set of blocking clauses) with gophersat, a
// pure-CNF DPLL/CDCL solver. It never sees theory atoms -- those are erased
// by the Boolean abstraction before anything is asserted here -- so there is
// no need for the incremental-assumption machinery bmc/z3 carries for its
// UnsatCore.
package satsolver

import (
	"fmt"

	"github.com/crillab/gophersat/solver"
	"github.com/pathbmc/pathbmc"
)

var _ bmc.SmtSolver = (*Solver)(nil)

// Solver is a CNF-only SmtSolver backed by gophersat. Assert accepts any
// well-formed Boolean combination of SymbolExpr/ConstantExpr/NotExpr/
// BinaryExpr{AND,OR,XOR,EQ}/ImplExpr/IffExpr/IteExpr -- exactly what the
// Boolean abstraction (and the blocking clauses built over it) ever
// produces -- and Tseitin-encodes it down to CNF clauses gophersat consumes
// directly.
type Solver struct {
	vars    map[string]solver.Var
	nextVar int32
	clauses [][]int
	unsat   bool // a constant-false assertion was seen: short-circuit to Unsat.

	model []bool
}

// NewSolver returns a new, empty Solver.
func NewSolver() *Solver {
	s := &Solver{}
	s.Reset()
	return s
}

// Reset implements bmc.SmtSolver.
func (s *Solver) Reset() {
	s.vars = make(map[string]solver.Var)
	s.nextVar = 0
	s.clauses = nil
	s.unsat = false
	s.model = nil
}

// Assert implements bmc.SmtSolver: it Tseitin-encodes e and asserts it true.
func (s *Solver) Assert(e bmc.Expr) {
	s.assertTrue(e)
}

// Solve implements bmc.SmtSolver.
func (s *Solver) Solve() (bmc.Result, error) {
	if s.unsat {
		return bmc.Unsat, nil
	}
	if len(s.clauses) == 0 {
		s.model = nil
		return bmc.Sat, nil
	}

	pb := solver.ParseSlice(s.clauses)
	sv := solver.New(pb)

	switch sv.Solve() {
	case solver.Sat:
		s.model = sv.Model()
		return bmc.Sat, nil
	case solver.Unsat:
		return bmc.Unsat, nil
	default:
		return bmc.Unknown, nil
	}
}

// Model implements bmc.SmtSolver. Only valid after Solve returns Sat.
func (s *Solver) Model() bmc.Model {
	return &Model{vars: s.vars, bits: s.model}
}

// UnsatCore implements bmc.SmtSolver. The main solver is never asked for an
// unsat core -- the refinement loop computes active literals via the AI and
// SMT path checkers against the auxiliary solver -- so this always returns
// nil.
func (s *Solver) UnsatCore() []bmc.Expr {
	return nil
}

func (s *Solver) varFor(name string) solver.Var {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := solver.Var(s.nextVar)
	s.nextVar++
	s.vars[name] = v
	return v
}

// freshVar allocates a Tseitin auxiliary variable with no Expr name.
func (s *Solver) freshVar() solver.Var {
	v := solver.Var(s.nextVar)
	s.nextVar++
	return v
}

func (s *Solver) addClause(lits ...solver.Lit) {
	clause := make([]int, len(lits))
	for i, l := range lits {
		clause[i] = int(l.Int())
	}
	s.clauses = append(s.clauses, clause)
}

// assertTrue pushes conjunctions and double negations down before falling
// back to a literal via litOf, to keep the clause count close to what a
// human would write directly rather than fully Tseitin-expanding every node.
func (s *Solver) assertTrue(e bmc.Expr) {
	switch e := e.(type) {
	case *bmc.ConstantExpr:
		if !e.IsTrue() {
			s.unsat = true
		}
	case *bmc.BinaryExpr:
		if e.Op == bmc.AND && bmc.ExprWidth(e) == bmc.WidthBool {
			s.assertTrue(e.LHS)
			s.assertTrue(e.RHS)
			return
		}
		s.addClause(s.litOf(e))
	case *bmc.NotExpr:
		s.assertFalse(e.Expr)
	default:
		s.addClause(s.litOf(e))
	}
}

func (s *Solver) assertFalse(e bmc.Expr) {
	switch e := e.(type) {
	case *bmc.ConstantExpr:
		if e.IsTrue() {
			s.unsat = true
		}
	case *bmc.BinaryExpr:
		if e.Op == bmc.OR && bmc.ExprWidth(e) == bmc.WidthBool {
			s.assertFalse(e.LHS)
			s.assertFalse(e.RHS)
			return
		}
		s.addClause(s.litOf(e).Negation())
	case *bmc.NotExpr:
		s.assertTrue(e.Expr)
	default:
		s.addClause(s.litOf(e).Negation())
	}
}

// litOf returns a literal equivalent to e, Tseitin-encoding e's top
// connective when it is not already a plain symbol. Only symbol variables
// are cached (by name); a compound node gets fresh auxiliary variables on
// every visit.
func (s *Solver) litOf(e bmc.Expr) solver.Lit {
	switch e := e.(type) {
	case *bmc.ConstantExpr:
		v := s.freshVar()
		if e.IsTrue() {
			s.addClause(v.SignedLit(false))
		} else {
			s.addClause(v.SignedLit(true))
		}
		return v.Lit()
	case *bmc.SymbolExpr:
		return s.varFor(e.Name).Lit()
	case *bmc.NotExpr:
		return s.litOf(e.Expr).Negation()
	case *bmc.ImplExpr:
		a, b := s.litOf(e.LHS), s.litOf(e.RHS)
		q := s.freshVar().Lit()
		s.addClause(q.Negation(), a.Negation(), b)
		s.addClause(q, a)
		s.addClause(q, b.Negation())
		return q
	case *bmc.IffExpr:
		return s.iffLit(s.litOf(e.LHS), s.litOf(e.RHS))
	case *bmc.IteExpr:
		c, t, f := s.litOf(e.Cond), s.litOf(e.True), s.litOf(e.False)
		q := s.freshVar().Lit()
		s.addClause(q.Negation(), c.Negation(), t)
		s.addClause(q.Negation(), c, f)
		s.addClause(q, c.Negation(), t.Negation())
		s.addClause(q, c, f.Negation())
		return q
	case *bmc.BinaryExpr:
		return s.binaryLit(e)
	default:
		panic(fmt.Sprintf("satsolver: unsupported node after Boolean abstraction: %T", e))
	}
}

func (s *Solver) binaryLit(e *bmc.BinaryExpr) solver.Lit {
	a, b := s.litOf(e.LHS), s.litOf(e.RHS)
	switch e.Op {
	case bmc.AND:
		q := s.freshVar().Lit()
		s.addClause(q.Negation(), a)
		s.addClause(q.Negation(), b)
		s.addClause(q, a.Negation(), b.Negation())
		return q
	case bmc.OR:
		q := s.freshVar().Lit()
		s.addClause(q.Negation(), a, b)
		s.addClause(q, a.Negation())
		s.addClause(q, b.Negation())
		return q
	case bmc.XOR:
		return s.xorLit(a, b)
	case bmc.EQ:
		return s.iffLit(a, b)
	default:
		panic(fmt.Sprintf("satsolver: unsupported binary op after Boolean abstraction: %s", e.Op))
	}
}

func (s *Solver) iffLit(a, b solver.Lit) solver.Lit {
	q := s.freshVar().Lit()
	s.addClause(q.Negation(), a.Negation(), b)
	s.addClause(q.Negation(), a, b.Negation())
	s.addClause(q, a, b)
	s.addClause(q, a.Negation(), b.Negation())
	return q
}

func (s *Solver) xorLit(a, b solver.Lit) solver.Lit {
	q := s.freshVar().Lit()
	s.addClause(q.Negation(), a, b)
	s.addClause(q.Negation(), a.Negation(), b.Negation())
	s.addClause(q, a.Negation(), b)
	s.addClause(q, a, b.Negation())
	return q
}

// Model wraps a gophersat boolean assignment for evaluating core formulas.
type Model struct {
	vars map[string]solver.Var
	bits []bool
}

// Eval implements bmc.Model. Only SymbolExpr leaves are meaningful here --
// the main solver's model is an assignment to abstraction variables, not a
// theory model -- so any other node folds through its own Boolean structure.
func (m *Model) Eval(e bmc.Expr) bmc.Expr {
	return bmc.NewBoolConstantExpr(m.eval(e))
}

func (m *Model) eval(e bmc.Expr) bool {
	switch e := e.(type) {
	case *bmc.ConstantExpr:
		return e.IsTrue()
	case *bmc.SymbolExpr:
		v, ok := m.vars[e.Name]
		if !ok || m.bits == nil {
			return false
		}
		return m.bits[v]
	case *bmc.NotExpr:
		return !m.eval(e.Expr)
	case *bmc.ImplExpr:
		return !m.eval(e.LHS) || m.eval(e.RHS)
	case *bmc.IffExpr:
		return m.eval(e.LHS) == m.eval(e.RHS)
	case *bmc.IteExpr:
		if m.eval(e.Cond) {
			return m.eval(e.True)
		}
		return m.eval(e.False)
	case *bmc.BinaryExpr:
		switch e.Op {
		case bmc.AND:
			return m.eval(e.LHS) && m.eval(e.RHS)
		case bmc.OR:
			return m.eval(e.LHS) || m.eval(e.RHS)
		case bmc.XOR:
			return m.eval(e.LHS) != m.eval(e.RHS)
		case bmc.EQ:
			return m.eval(e.LHS) == m.eval(e.RHS)
		}
	}
	panic(fmt.Sprintf("satsolver: model cannot evaluate %T", e))
}
