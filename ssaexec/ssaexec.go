// Package ssaexec is the default SymbolicExecutor (bmc.SymbolicExecutor):
// it lowers a single golang.org/x/tools/go/ssa function into the precise
// verification condition a bmc.Engine discharges, unrolling loops to a
// fixed bound and modeling pointers/slices with the array theory.
//
// Scope: one function, intraprocedural. Calls are opaque -- their results
// become fresh symbolic values -- rather than inlined or summarized; see
// DESIGN.md for why no ecosystem interprocedural analysis from the
// retrieval pack fit this role.
package ssaexec

import (
	"fmt"
	"go/types"

	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/go/ssa"

	"github.com/pathbmc/pathbmc"
)

var _ bmc.SymbolicExecutor = (*Executor)(nil)

// nodeKey identifies one unrolled visit to a block: depth counts back-edge
// crossings taken to reach it, capped at the executor's bound.
type nodeKey struct {
	block *ssa.BasicBlock
	depth int
}

// node is one entry in the unrolled DAG built by build().
type node struct {
	key  nodeKey
	env  map[ssa.Value]bmc.Expr
	ptrs map[ssa.Value]*pointerVal

	// arrays is this node's heap: current content of each live array, keyed
	// by array ID, represented as an immutable.SortedMap over those IDs
	// rather than a plain map, so sharing it across nodes that branch from
	// a common predecessor never requires a defensive copy.
	arrays *immutable.SortedMap

	// succs maps an original successor block to the unrolled node it
	// reaches from this node, or is absent if the bound truncated it.
	succs map[*ssa.BasicBlock]nodeKey

	// panicLit is set if this node's block executes a bare panic; it is
	// the fresh witness symbol asserted reachable by the safety query.
	panicLit *bmc.SymbolExpr
}

// pointerVal is the executor's representation of an address: the ID of a
// backing array plus a byte offset into it, representing heap addresses as
// an array selection rather than a dedicated pointer theory. The array is
// looked up by ID in the
// owning node's arrays map, since a Store produces a new *bmc.Array value
// that every other pointerVal aliasing the same array must also observe.
type pointerVal struct {
	id     uint64
	offset bmc.Expr
}

// Executor lowers fn into a bmc.SymbolicExecutor, unrolling back edges up
// to bound times.
type Executor struct {
	fn    *ssa.Function
	bound int

	back map[[2]*ssa.BasicBlock]bool

	symbols   map[*ssa.BasicBlock]*bmc.SymbolExpr
	blockName map[string]*ssa.BasicBlock
	edgeLits  map[[2]*ssa.BasicBlock]bmc.Expr

	nodes   map[nodeKey]*node
	order   []nodeKey // topological order, entry first
	arrayID uint64

	vc         []bmc.Expr
	edgeForm   map[[2]nodeKey]bmc.Expr // activation formula for a realized unrolled edge
	panicForms map[nodeKey]bmc.Expr    // "block is reached" witness formula for a panic node
	safety     bmc.Expr                // disjunction of all panic witnesses
	provenance map[bmc.Expr]bmc.Expr   // vc formula -> the block/edge literal it came from

	lastTrace bmc.BmcTrace
	lastNodes []nodeKey
}

// New returns an Executor for fn, unrolling back edges up to bound times.
// A bound of 0 still analyzes straight-line and branching code; it simply
// never follows a back edge.
func New(fn *ssa.Function, bound int) *Executor {
	x := &Executor{
		fn:         fn,
		bound:      bound,
		symbols:    make(map[*ssa.BasicBlock]*bmc.SymbolExpr),
		blockName:  make(map[string]*ssa.BasicBlock),
		edgeLits:   make(map[[2]*ssa.BasicBlock]bmc.Expr),
		nodes:      make(map[nodeKey]*node),
		edgeForm:   make(map[[2]nodeKey]bmc.Expr),
		panicForms: make(map[nodeKey]bmc.Expr),
	}
	x.back = detectBackEdges(fn)
	x.build()
	return x
}

// Symbol implements bmc.SymbolicExecutor.
func (x *Executor) Symbol(b *ssa.BasicBlock) bmc.Expr {
	return x.symbolOf(b)
}

func (x *Executor) symbolOf(b *ssa.BasicBlock) *bmc.SymbolExpr {
	if s, ok := x.symbols[b]; ok {
		return s
	}
	name := fmt.Sprintf("b%d", b.Index)
	s := bmc.NewSymbolExpr(name)
	x.symbols[b] = s
	x.blockName[name] = b
	return s
}

// EdgeLiteral implements bmc.SymbolicExecutor.
func (x *Executor) EdgeLiteral(u, v *ssa.BasicBlock) bmc.Expr {
	key := [2]*ssa.BasicBlock{u, v}
	if e, ok := x.edgeLits[key]; ok {
		return e
	}
	var e bmc.Expr
	if isCriticalEdgeUV(u, v) {
		name := fmt.Sprintf("e%d_%d", u.Index, v.Index)
		e = bmc.NewTupleSymbolExpr(name, x.symbolOf(u), x.symbolOf(v))
	} else {
		e = bmc.NewBinaryExpr(bmc.AND, x.symbolOf(u), x.symbolOf(v))
	}
	x.edgeLits[key] = e
	return e
}

// isCriticalEdgeUV mirrors bmc's private isCriticalEdge: u has another
// successor and v has another predecessor.
func isCriticalEdgeUV(u, v *ssa.BasicBlock) bool {
	other := func() bool {
		for _, s := range u.Succs {
			if s != v {
				return true
			}
		}
		return false
	}()
	if !other {
		return false
	}
	for _, p := range v.Preds {
		if p != u {
			return true
		}
	}
	return false
}

// detectBackEdges classifies every CFG edge of fn via DFS discovery order:
// u->v is a back edge iff v is on the current DFS stack when u is visited.
func detectBackEdges(fn *ssa.Function) map[[2]*ssa.BasicBlock]bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[*ssa.BasicBlock]int)
	back := make(map[[2]*ssa.BasicBlock]bool)

	var dfs func(b *ssa.BasicBlock)
	dfs = func(b *ssa.BasicBlock) {
		color[b] = gray
		for _, s := range b.Succs {
			switch color[s] {
			case gray:
				back[[2]*ssa.BasicBlock{b, s}] = true
			case white:
				dfs(s)
			}
		}
		color[b] = black
	}
	if len(fn.Blocks) > 0 {
		dfs(fn.Blocks[0])
	}
	return back
}

// typeWidth returns the bit width ssaexec uses to represent values of t.
// Only scalar integer and boolean types are modeled; anything else (maps,
// channels, interfaces, floats) is out of scope and reported as width 64,
// treated opaquely by the caller.
func typeWidth(t types.Type) uint {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return bmc.Width64
	}
	switch basic.Kind() {
	case types.Bool, types.UntypedBool:
		return bmc.WidthBool
	case types.Int8, types.Uint8:
		return bmc.Width8
	case types.Int16, types.Uint16:
		return bmc.Width16
	case types.Int32, types.Uint32:
		return bmc.Width32
	default:
		return bmc.Width64
	}
}

func isUnsigned(t types.Type) bool {
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsUnsigned != 0
}

// uint64Comparer orders array IDs for the arrays SortedMap. Implements
// immutable.Comparer.
type uint64Comparer struct{}

func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
