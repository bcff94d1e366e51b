package bmc

import "golang.org/x/tools/go/ssa"

// BmcTrace is an ordered list of the basic blocks a counter-example, or a
// candidate abstract path, passes through.
type BmcTrace []*ssa.BasicBlock

// SymbolicStore maps pre-SSA boolean symbols (block/edge literals) to their
// SSA-renamed counterparts at one cut-point. A per-cut-point sequence of
// these is how the core translates an abstract literal into the concrete
// literal for a specific position along an unrolled path: scan the
// sequence in order and take the first store that changes the literal's
// evaluation.
type SymbolicStore interface {
	// Eval returns the store's renamed value for e and true, or e (or nil)
	// and false if the store does not define e.
	Eval(e Expr) (Expr, bool)
}

// SymbolicExecutor is the front-end collaborator: it lowers a program into
// the precise verification condition and provides the plumbing the
// refinement loop needs to translate SMT results back into active
// block/edge literals. The core never constructs one; bmc/ssaexec is the
// default implementation over Go SSA.
type SymbolicExecutor interface {
	// Encode returns the precise VC as an ordered, block-keyed sequence of
	// formulas.
	Encode() []Expr

	// Symbol returns the block symbol b(B) for block b.
	Symbol(b *ssa.BasicBlock) Expr

	// EdgeLiteral returns the edge literal e(u,v), applying the
	// critical-edge tuple encoding where required.
	EdgeLiteral(u, v *ssa.BasicBlock) Expr

	// ModelImplicant returns the subset of vc's atoms whose truth in model
	// justifies vc's truth, together with a map from each such atom to the
	// block/edge literal it originated from (its provenance). Atoms with no
	// recorded provenance -- e.g. in single-block programs -- are absent
	// from activeMap.
	ModelImplicant(vc []Expr, model Model) (implicant []Expr, activeMap map[Expr]Expr)

	// CutPointStores returns the per-cut-point symbolic stores in
	// execution order, c0...ck.
	CutPointStores() []SymbolicStore

	// Trace reconstructs the ordered block sequence a main-solver model
	// corresponds to.
	Trace(model Model) BmcTrace
}

// AbstractInterpreter is the optional collaborator backing the abstract-
// interpretation path checker. bmc/aicheck's IntervalPathChecker is a
// concrete forward interval analysis; callers may substitute a different
// abstract domain.
type AbstractInterpreter interface {
	// PathAnalyze runs abstract interpretation on the CFG sliced to trace.
	// If the post-state is bottom, relevant holds the minimal sequence of
	// statements whose constraints justify infeasibility.
	PathAnalyze(trace BmcTrace) (bottom bool, relevant []Statement)
}

// StatementKind classifies a relevant statement surfaced by an
// AbstractInterpreter, per the active-literal derivation rules in §4.6.
type StatementKind int

const (
	// StmtGeneric covers binary ops, casts, selects, boolean binaries,
	// constraint-assignments, and array ops/assumptions: contributes b(Parent).
	StmtGeneric StatementKind = iota
	// StmtAssumeEdge is an assume guarding an edge: contributes b(Src) and
	// e(Src,Dst).
	StmtAssumeEdge
	// StmtAssumeBlock is an assume guarding an entire block: contributes
	// b(Parent).
	StmtAssumeBlock
	// StmtPhiAssign is an assignment whose LHS is a PHI node: treated as the
	// edge Src->Dst (Dst is the PHI's block); contributes b(Src) and
	// e(Src,Dst).
	StmtPhiAssign
	// StmtOther is any statement kind the derivation rules do not cover;
	// its presence forces the AI result to be abandoned.
	StmtOther
)

// Statement is one relevant statement an AbstractInterpreter reports back
// from a path analysis.
type Statement struct {
	Kind   StatementKind
	Parent *ssa.BasicBlock // owning block, for StmtGeneric/StmtAssumeBlock
	Src    *ssa.BasicBlock // edge source, for StmtAssumeEdge/StmtPhiAssign
	Dst    *ssa.BasicBlock // edge destination, for StmtAssumeEdge/StmtPhiAssign
}
