package bmc

import "golang.org/x/tools/go/ssa"

// isCriticalEdge reports whether u->v is a critical CFG edge: u has a
// successor other than v, and v has a predecessor other than u. Conjunction
// of the two endpoints' block symbols cannot distinguish paths through such
// an edge, so it needs its own literal.
func isCriticalEdge(u, v *ssa.BasicBlock) bool {
	return hasOtherSuccessor(u, v) && hasOtherPredecessor(v, u)
}

func hasOtherSuccessor(u, v *ssa.BasicBlock) bool {
	for _, succ := range u.Succs {
		if succ != v {
			return true
		}
	}
	return false
}

func hasOtherPredecessor(v, u *ssa.BasicBlock) bool {
	for _, pred := range v.Preds {
		if pred != u {
			return true
		}
	}
	return false
}

// edges returns every (u,v) CFG edge reachable from fn's basic blocks, in a
// stable order: blocks in fn.Blocks order, successors in Succs order.
func edges(fn *ssa.Function) [][2]*ssa.BasicBlock {
	var out [][2]*ssa.BasicBlock
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			out = append(out, [2]*ssa.BasicBlock{b, s})
		}
	}
	return out
}
