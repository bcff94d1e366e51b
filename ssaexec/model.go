package ssaexec

import (
	"golang.org/x/tools/go/ssa"

	"github.com/pathbmc/pathbmc"
)

// Encode implements bmc.SymbolicExecutor.
func (x *Executor) Encode() []bmc.Expr {
	return x.vc
}

// replay walks the unrolled DAG from the entry node, at each *ssa.If
// choosing the successor whose edge literal model deems true, and
// collecting the nodes and formulas visited. It is the single source of
// truth Trace, ModelImplicant and CutPointStores all build on.
func (x *Executor) replay(model bmc.Model) (nodes []nodeKey, formulas []bmc.Expr) {
	if len(x.order) == 0 {
		return nil, nil
	}
	seenOrigEdge := make(map[[2]*ssa.BasicBlock]bool)
	cur := x.order[0]
	nodes = append(nodes, cur)

	for {
		nd := x.nodes[cur]
		if nd.panicLit != nil {
			if f, ok := x.panicForms[cur]; ok {
				formulas = append(formulas, f)
			}
		}

		block := cur.block
		if len(block.Instrs) == 0 {
			break
		}
		var next *nodeKey
		switch term := block.Instrs[len(block.Instrs)-1].(type) {
		case *ssa.If:
			for _, s := range block.Succs {
				if !bmc.IsConstantTrue(model.Eval(x.EdgeLiteral(block, s))) {
					continue
				}
				if sk, ok := nd.succs[s]; ok {
					n := sk
					next = &n
					break
				}
			}
		case *ssa.Jump:
			if sk, ok := nd.succs[term.Block().Succs[0]]; ok {
				n := sk
				next = &n
			}
		default:
			// Return, or any other terminator: the path ends here.
		}
		if next == nil {
			break
		}
		if f, ok := x.edgeForm[[2]nodeKey{cur, *next}]; ok {
			formulas = append(formulas, f)
		}
		origEdge := [2]*ssa.BasicBlock{cur.block, next.block}
		if !seenOrigEdge[origEdge] {
			seenOrigEdge[origEdge] = true
			formulas = append(formulas, bmc.NewImplExpr(x.EdgeLiteral(cur.block, next.block), x.Symbol(next.block)))
		}
		cur = *next
		nodes = append(nodes, cur)
	}

	formulas = append(formulas, x.symbolOf(x.order[0].block), x.safety)
	return nodes, formulas
}

// Trace implements bmc.SymbolicExecutor.
func (x *Executor) Trace(model bmc.Model) bmc.BmcTrace {
	nodes, _ := x.replay(model)
	x.lastNodes = nodes

	trace := make(bmc.BmcTrace, len(nodes))
	for i, k := range nodes {
		trace[i] = k.block
	}
	x.lastTrace = trace
	return trace
}

// ModelImplicant implements bmc.SymbolicExecutor. It ignores vc and
// replays model against its own unrolled structure instead, since vc is
// always the exact slice Encode returned and carries no per-atom
// provenance of its own.
func (x *Executor) ModelImplicant(vc []bmc.Expr, model bmc.Model) (implicant []bmc.Expr, activeMap map[bmc.Expr]bmc.Expr) {
	nodes, formulas := x.replay(model)
	x.lastNodes = nodes

	activeMap = make(map[bmc.Expr]bmc.Expr, len(formulas))
	for _, f := range formulas {
		if lit, ok := x.provenance[f]; ok {
			activeMap[f] = lit
		}
	}
	return formulas, activeMap
}

// blockHasIncomingBackEdge reports whether any edge into b is a back edge.
func (x *Executor) blockHasIncomingBackEdge(b *ssa.BasicBlock) bool {
	for _, p := range b.Preds {
		if x.back[[2]*ssa.BasicBlock{p, b}] {
			return true
		}
	}
	return false
}

// CutPointStores implements bmc.SymbolicExecutor. A cut point is a visit
// to a loop header (the target of a back edge); the final position of the
// trace is always included too, so a loop-free trace still yields at
// least one store.
func (x *Executor) CutPointStores() []bmc.SymbolicStore {
	nodes := x.lastNodes
	if len(nodes) == 0 {
		return nil
	}

	var stores []bmc.SymbolicStore
	for i, k := range nodes {
		if i == len(nodes)-1 || x.blockHasIncomingBackEdge(k.block) {
			visited := make(map[*ssa.BasicBlock]bool, i+1)
			for _, n := range nodes[:i+1] {
				visited[n.block] = true
			}
			stores = append(stores, &cutPointStore{x: x, visited: visited})
		}
	}
	return stores
}

// cutPointStore answers whether a block/edge literal was true as of one
// position along the trace CutPointStores was built from.
type cutPointStore struct {
	x       *Executor
	visited map[*ssa.BasicBlock]bool
}

func (s *cutPointStore) Eval(e bmc.Expr) (bmc.Expr, bool) {
	v, ok := s.eval(e)
	if !ok {
		return nil, false
	}
	return bmc.NewBoolConstantExpr(v), true
}

func (s *cutPointStore) eval(e bmc.Expr) (bool, bool) {
	switch e := e.(type) {
	case *bmc.SymbolExpr:
		b, ok := s.x.blockName[e.Name]
		if !ok {
			return false, false
		}
		return s.visited[b], true
	case *bmc.NotExpr:
		v, ok := s.eval(e.Expr)
		return !v, ok
	case *bmc.BinaryExpr:
		switch e.Op {
		case bmc.AND:
			l, lok := s.eval(e.LHS)
			r, rok := s.eval(e.RHS)
			if !lok || !rok {
				return false, false
			}
			return l && r, true
		case bmc.OR:
			l, lok := s.eval(e.LHS)
			r, rok := s.eval(e.RHS)
			if !lok || !rok {
				return false, false
			}
			return l || r, true
		}
	}
	return false, false
}
