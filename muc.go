package bmc

import "fmt"

// MUCStats holds the cumulative solver-call count for one MUC engine
// instance, surfaced through CoreStats.
type MUCStats struct {
	Calls int
}

// MUC is the shared capability implemented by the three interchangeable
// minimal-unsat-core engines: given a formula list known to be unsat,
// return a 1-minimal unsat subset.
type MUC interface {
	Run(f []Expr) ([]Expr, error)
	Stats() MUCStats
}

// MUCStrategy selects one of the three MUC engines.
type MUCStrategy int

const (
	MUCAssumptions MUCStrategy = iota
	MUCNaive
	MUCBinarySearch
)

// String returns the string representation of the strategy.
func (s MUCStrategy) String() string {
	switch s {
	case MUCAssumptions:
		return "assumptions"
	case MUCNaive:
		return "naive"
	case MUCBinarySearch:
		return "binary-search"
	default:
		return fmt.Sprintf("MUCStrategy<%d>", int(s))
	}
}

// NewMUC returns the MUC engine for strategy, backed by solver.
func NewMUC(strategy MUCStrategy, solver SmtSolver) MUC {
	switch strategy {
	case MUCAssumptions:
		return &AssumptionsMUC{Solver: solver}
	case MUCNaive:
		return &NaiveMUC{Solver: solver}
	case MUCBinarySearch:
		return NewBinarySearchMUC(solver)
	default:
		panic(fmt.Sprintf("muc: unknown strategy %v", strategy))
	}
}

// AssumptionsMUC computes a MUC with a single solver call: each formula fi
// gets a fresh assumption symbol ai, the solver is given ai -> fi and ai for
// every i, and the solver's own unsat core -- restricted to the assumption
// symbols -- maps back to the originating formulas.
type AssumptionsMUC struct {
	Solver SmtSolver
	stats  MUCStats
}

// Run implements MUC.
func (m *AssumptionsMUC) Run(f []Expr) ([]Expr, error) {
	m.Solver.Reset()

	byName := make(map[string]Expr, len(f))
	for i, fi := range f {
		a := NewSymbolExpr(fmt.Sprintf("$assume%d", i))
		byName[a.Name] = fi
		m.Solver.Assert(NewImplExpr(a, fi))
		m.Solver.Assert(a)
	}

	m.stats.Calls++
	result, err := m.Solver.Solve()
	if err != nil {
		return nil, err
	}
	if result == Unknown {
		return nil, ErrSolverUnknown
	}
	assert(result == Unsat, "muc: assumptions-based core requires an unsat formula")

	core := m.Solver.UnsatCore()
	out := make([]Expr, 0, len(core))
	for _, c := range core {
		sym, ok := c.(*SymbolExpr)
		if !ok {
			continue
		}
		if fi, ok := byName[sym.Name]; ok {
			out = append(out, fi)
		}
	}
	return out, nil
}

// Stats returns the engine's cumulative solver-call count.
func (m *AssumptionsMUC) Stats() MUCStats { return m.stats }

// NaiveMUC computes a MUC with a quadratic number of solver calls: remove
// each formula in turn, keep the removal if the remainder stays unsat,
// otherwise restore it.
type NaiveMUC struct {
	Solver SmtSolver
	stats  MUCStats
}

// Run implements MUC.
func (m *NaiveMUC) Run(f []Expr) ([]Expr, error) {
	return m.RunWithAssumptions(f, nil)
}

// RunWithAssumptions computes a MUC of f under a set of formulas that must
// stay asserted throughout but are excluded from the returned core. Used
// directly by BinarySearchMUC for its divide-and-conquer minimizations.
func (m *NaiveMUC) RunWithAssumptions(f, assumptions []Expr) ([]Expr, error) {
	core := append([]Expr(nil), f...)

	for i := 0; i < len(core); {
		trial := make([]Expr, 0, len(core)-1)
		trial = append(trial, core[:i]...)
		trial = append(trial, core[i+1:]...)

		m.stats.Calls++
		sat, err := checkSat(m.Solver, assumptions, trial)
		if err != nil {
			return nil, err
		}
		if sat {
			i++ // removing core[i] loses unsatisfiability: keep it, advance.
		} else {
			core = trial // removal accepted: re-test the element now at i.
		}
	}
	return core, nil
}

// Stats returns the engine's cumulative solver-call count.
func (m *NaiveMUC) Stats() MUCStats { return m.stats }

// binarySearchMUCThreshold is the formula count at or below which
// BinarySearchMUC falls back to the naive engine.
const binarySearchMUCThreshold = 10

// BinarySearchMUC computes a MUC by recursively halving the formula list,
// falling back to NaiveMUC once a half shrinks to binarySearchMUCThreshold
// or fewer formulas.
type BinarySearchMUC struct {
	Solver   SmtSolver
	Fallback *NaiveMUC
	stats    MUCStats
}

// NewBinarySearchMUC returns a new instance of BinarySearchMUC backed by solver.
func NewBinarySearchMUC(solver SmtSolver) *BinarySearchMUC {
	return &BinarySearchMUC{Solver: solver, Fallback: &NaiveMUC{Solver: solver}}
}

// Run implements MUC.
func (m *BinarySearchMUC) Run(f []Expr) ([]Expr, error) {
	return m.minimize(f, nil)
}

func (m *BinarySearchMUC) minimize(f, assumptions []Expr) ([]Expr, error) {
	if len(f) <= binarySearchMUCThreshold {
		core, err := m.Fallback.RunWithAssumptions(f, assumptions)
		m.stats.Calls += m.Fallback.stats.Calls
		m.Fallback.stats.Calls = 0
		return core, err
	}

	mid := len(f) / 2
	a, b := f[:mid], f[mid:]

	m.stats.Calls++
	satA, err := checkSat(m.Solver, assumptions, a)
	if err != nil {
		return nil, err
	}
	if !satA {
		return m.minimize(a, assumptions)
	}

	m.stats.Calls++
	satB, err := checkSat(m.Solver, assumptions, b)
	if err != nil {
		return nil, err
	}
	if !satB {
		return m.minimize(b, assumptions)
	}

	// Both halves are needed: minimize A under Gamma+B, then B under the
	// narrowed Gamma+coreA.
	coreA, err := m.minimize(a, concatExprs(assumptions, b))
	if err != nil {
		return nil, err
	}
	coreB, err := m.minimize(b, concatExprs(assumptions, coreA))
	if err != nil {
		return nil, err
	}
	return append(coreA, coreB...), nil
}

// Stats returns the engine's cumulative solver-call count, including calls
// made by the naive fallback engine.
func (m *BinarySearchMUC) Stats() MUCStats { return m.stats }

func concatExprs(a, b []Expr) []Expr {
	out := make([]Expr, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// checkSat resets solver, asserts assumptions and candidate, and reports
// whether the result is Sat. Unknown is surfaced as ErrSolverUnknown.
func checkSat(solver SmtSolver, assumptions, candidate []Expr) (bool, error) {
	solver.Reset()
	for _, e := range assumptions {
		solver.Assert(e)
	}
	for _, e := range candidate {
		solver.Assert(e)
	}
	result, err := solver.Solve()
	if err != nil {
		return false, err
	}
	if result == Unknown {
		return false, ErrSolverUnknown
	}
	return result == Sat, nil
}
