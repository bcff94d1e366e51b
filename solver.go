package bmc

// SmtSolver is the capability the engine needs from a theory solver. Both
// the main solver (holding the Boolean abstraction and blocking clauses)
// and the auxiliary solver (precise per-path theory checks) implement it;
// they may be backed by entirely different engines (see bmc/satsolver and
// bmc/z3).
type SmtSolver interface {
	// Reset discards all asserted formulas, returning the solver to empty.
	Reset()
	// Assert adds e as a permanent constraint.
	Assert(e Expr)
	// Solve decides satisfiability of the conjunction of asserted formulas.
	Solve() (Result, error)
	// Model returns a satisfying assignment. Only valid after Solve returns
	// Sat.
	Model() Model
	// UnsatCore returns a subset of the asserted formulas sufficient to
	// explain unsatisfiability. Only valid after Solve returns Unsat, and
	// only meaningful for solvers asked to track assumptions.
	UnsatCore() []Expr
}

// Model is a satisfying assignment returned by an SmtSolver after Solve
// returns Sat.
type Model interface {
	// Eval returns the model's value for e, folding it to a constant where
	// the model determines one.
	Eval(e Expr) Expr
}
