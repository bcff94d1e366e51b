package bmc

import "sort"

// PathCheckResult is the verdict of one SMT path check.
type PathCheckResult struct {
	Result Result
	Model  Model  // set when Result == Sat: a genuine counter-example.
	Active []Expr // set when Result == Unsat: literals to block.
}

// PathChecker is the SMT path checker: given a model of the current
// Boolean abstraction, it extracts the precise path formula implied by the
// model, checks it with the auxiliary solver, and on Unsat computes the
// MUC and maps it back to active block/edge literals.
type PathChecker struct {
	Executor  SymbolicExecutor
	AuxSolver SmtSolver
	MUC       MUC
}

// Check runs the protocol in §4.5 against the precise VC for the given
// abstraction model.
func (c *PathChecker) Check(vc []Expr, model Model) (PathCheckResult, error) {
	implicant, activeMap := c.Executor.ModelImplicant(vc, model)
	pathFormula := sortDedupExprs(implicant)

	c.AuxSolver.Reset()
	for _, e := range pathFormula {
		c.AuxSolver.Assert(e)
	}

	result, err := c.AuxSolver.Solve()
	if err != nil {
		return PathCheckResult{}, err
	}

	switch result {
	case Sat:
		return PathCheckResult{Result: Sat, Model: c.AuxSolver.Model()}, nil
	case Unknown:
		return PathCheckResult{Result: Unknown}, nil
	case Unsat:
		core, err := c.MUC.Run(pathFormula)
		if err != nil {
			return PathCheckResult{}, err
		}
		active, ok := activeLiteralsFromCore(core, activeMap)
		if !ok {
			return PathCheckResult{}, ErrActiveLiteralGap
		}
		return PathCheckResult{Result: Unsat, Active: active}, nil
	default:
		panic("unreachable")
	}
}

// activeLiteralsFromCore translates each core atom into the block/edge
// literal it originated from via activeMap. ok is false if core is
// non-empty but not a single atom in it carries recorded provenance --
// the checker has nothing to block the main solver on and cannot proceed.
func activeLiteralsFromCore(core []Expr, activeMap map[Expr]Expr) ([]Expr, bool) {
	var active []Expr
	for _, e := range core {
		if lit, ok := activeMap[e]; ok {
			active = append(active, lit)
		}
	}
	if len(core) > 0 && len(active) == 0 {
		return nil, false
	}
	return sortDedupExprs(active), true
}

// sortDedupExprs returns in sorted by lessExpr with structural duplicates
// removed.
func sortDedupExprs(in []Expr) []Expr {
	out := append([]Expr(nil), in...)
	sort.Slice(out, func(i, j int) bool { return lessExpr(out[i], out[j]) })

	deduped := out[:0]
	for i, e := range out {
		if i == 0 || CompareExpr(e, deduped[len(deduped)-1]) != 0 {
			deduped = append(deduped, e)
		}
	}
	return deduped
}
