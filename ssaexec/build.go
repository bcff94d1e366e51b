package ssaexec

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"

	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/go/ssa"

	"github.com/pathbmc/pathbmc"
)

// build unrolls fn into the node DAG and lowers it into x.vc. It runs once,
// from New.
func (x *Executor) build() {
	if len(x.fn.Blocks) == 0 {
		return
	}
	entry := nodeKey{block: x.fn.Blocks[0], depth: 0}

	succEdges := make(map[nodeKey]map[*ssa.BasicBlock]nodeKey)
	predEdges := make(map[nodeKey][]nodeKey)
	visited := map[nodeKey]bool{entry: true}
	queue := []nodeKey{entry}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		succEdges[cur] = make(map[*ssa.BasicBlock]nodeKey)

		for _, s := range cur.block.Succs {
			nd := cur.depth
			if x.back[[2]*ssa.BasicBlock{cur.block, s}] {
				nd++
			}
			if nd > x.bound {
				continue // unwinding bound exceeded: truncate this branch.
			}
			sk := nodeKey{block: s, depth: nd}
			succEdges[cur][s] = sk
			predEdges[sk] = append(predEdges[sk], cur)
			if !visited[sk] {
				visited[sk] = true
				queue = append(queue, sk)
			}
		}
	}

	order := topoSort(visited, succEdges)
	x.order = order

	for _, k := range order {
		x.nodes[k] = &node{key: k, succs: succEdges[k]}
	}

	seenOrigEdge := make(map[[2]*ssa.BasicBlock]bool)
	var formulas []bmc.Expr
	formulas = append(formulas, x.symbolOf(entry.block))

	for _, k := range order {
		nd := x.nodes[k]
		nd.env, nd.ptrs, nd.arrays = x.mergeEnv(k, predEdges[k])
		x.lowerBlock(nd)

		for _, s := range k.block.Succs {
			origEdge := [2]*ssa.BasicBlock{k.block, s}
			if !seenOrigEdge[origEdge] {
				seenOrigEdge[origEdge] = true
				formulas = append(formulas, bmc.NewImplExpr(x.EdgeLiteral(k.block, s), x.Symbol(s)))
				x.recordProvenance(formulas[len(formulas)-1], x.EdgeLiteral(k.block, s))
			}
		}

		if nd.panicLit != nil {
			f := bmc.NewImplExpr(x.Symbol(k.block), nd.panicLit)
			formulas = append(formulas, f)
			x.recordProvenance(f, x.Symbol(k.block))
			x.panicForms[k] = f
		}

		switch term := k.block.Instrs[len(k.block.Instrs)-1].(type) {
		case *ssa.If:
			cond := x.valueExpr(nd, term.Cond)
			for i, s := range k.block.Succs {
				sk, ok := nd.succs[s]
				if !ok {
					continue
				}
				c := cond
				if i == 1 {
					c = bmc.NewNotExpr(cond)
				}
				f := bmc.NewImplExpr(bmc.NewBinaryExpr(bmc.AND, x.Symbol(k.block), c), x.EdgeLiteral(k.block, s))
				formulas = append(formulas, f)
				x.edgeForm[[2]nodeKey{k, sk}] = f
				x.recordProvenance(f, x.EdgeLiteral(k.block, s))
			}
		case *ssa.Jump:
			if len(k.block.Succs) == 1 {
				s := k.block.Succs[0]
				sk := nd.succs[s]
				f := bmc.NewImplExpr(x.Symbol(k.block), x.EdgeLiteral(k.block, s))
				formulas = append(formulas, f)
				x.edgeForm[[2]nodeKey{k, sk}] = f
				x.recordProvenance(f, x.EdgeLiteral(k.block, s))
			}
		}
	}

	var panics []bmc.Expr
	for _, k := range order {
		if nd := x.nodes[k]; nd.panicLit != nil {
			panics = append(panics, nd.panicLit)
		}
	}
	if len(panics) > 0 {
		safety := panics[0]
		for _, p := range panics[1:] {
			safety = bmc.NewBinaryExpr(bmc.OR, safety, p)
		}
		x.safety = safety
		formulas = append(formulas, safety)
	} else {
		// No reachable panic site: the query is unsat by construction.
		x.safety = bmc.NewBoolConstantExpr(false)
		formulas = append(formulas, x.safety)
	}

	x.vc = formulas
}

// topoSort orders the discovered nodes so every predecessor precedes its
// successors; the unrolled graph is acyclic by construction (every cycle
// crosses a back edge, which strictly increases depth), so Kahn's
// algorithm always terminates having visited every node.
func topoSort(visited map[nodeKey]bool, succEdges map[nodeKey]map[*ssa.BasicBlock]nodeKey) []nodeKey {
	indeg := make(map[nodeKey]int)
	for k := range visited {
		indeg[k] = 0
	}
	for _, succs := range succEdges {
		for _, sk := range succs {
			indeg[sk]++
		}
	}

	var queue []nodeKey
	for k, d := range indeg {
		if d == 0 {
			queue = append(queue, k)
		}
	}
	// Deterministic order: block.Index, then depth.
	sortNodeKeys(queue)

	var order []nodeKey
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		order = append(order, k)
		var next []nodeKey
		for _, sk := range succEdges[k] {
			indeg[sk]--
			if indeg[sk] == 0 {
				next = append(next, sk)
			}
		}
		sortNodeKeys(next)
		queue = append(queue, next...)
	}
	return order
}

func sortNodeKeys(ks []nodeKey) {
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0; j-- {
			a, b := ks[j-1], ks[j]
			if a.block.Index < b.block.Index || (a.block.Index == b.block.Index && a.depth <= b.depth) {
				break
			}
			ks[j-1], ks[j] = ks[j], ks[j-1]
		}
	}
}

func (x *Executor) recordProvenance(formula, lit bmc.Expr) {
	if x.provenance == nil {
		x.provenance = make(map[bmc.Expr]bmc.Expr)
	}
	x.provenance[formula] = lit
}

// mergeEnv builds the incoming environment for k from its realized
// predecessor nodes, resolving PHI instructions via a nested if-then-else
// over the predecessors' edge literals rather than an equality constraint,
// so every other value in k's body can be substituted directly.
func (x *Executor) mergeEnv(k nodeKey, preds []nodeKey) (map[ssa.Value]bmc.Expr, map[ssa.Value]*pointerVal, *immutable.SortedMap) {
	env := make(map[ssa.Value]bmc.Expr)
	ptrs := make(map[ssa.Value]*pointerVal)
	arrays := immutable.NewSortedMap(&uint64Comparer{})

	if len(preds) == 0 {
		return x.bindParams(k.block, env, ptrs, arrays)
	}

	base := x.nodes[preds[0]]
	for v, e := range base.env {
		env[v] = e
	}
	for v, p := range base.ptrs {
		ptrs[v] = p
	}
	arrays = base.arrays
	for _, p := range preds[1:] {
		pn := x.nodes[p]
		itr := pn.arrays.Iterator()
		for !itr.Done() {
			id, a := itr.Next()
			arrays = arrays.Set(id, a)
		}
	}

	for _, instr := range k.block.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			continue
		}
		var cases []struct {
			cond bmc.Expr
			val  bmc.Expr
		}
		for i, pred := range phi.Block().Preds {
			var pk nodeKey
			found := false
			for _, p := range preds {
				if p.block == pred {
					pk = p
					found = true
					break
				}
			}
			if !found {
				continue
			}
			pn := x.nodes[pk]
			val := x.valueExpr(pn, phi.Edges[i])
			cases = append(cases, struct {
				cond bmc.Expr
				val  bmc.Expr
			}{cond: x.EdgeLiteral(pred, phi.Block()), val: val})
		}
		if len(cases) == 0 {
			continue
		}
		result := cases[len(cases)-1].val
		for i := len(cases) - 2; i >= 0; i-- {
			result = bmc.NewIteExpr(cases[i].cond, cases[i].val, result)
		}
		env[phi] = result
	}
	return env, ptrs, arrays
}

func (x *Executor) bindParams(entry *ssa.BasicBlock, env map[ssa.Value]bmc.Expr, ptrs map[ssa.Value]*pointerVal, arrays *immutable.SortedMap) (map[ssa.Value]bmc.Expr, map[ssa.Value]*pointerVal, *immutable.SortedMap) {
	for _, p := range x.fn.Params {
		width := typeWidth(p.Type())
		if width == 0 {
			continue
		}
		arr := x.freshArray(max1(width / 8))
		arrays = arrays.Set(arr.ID, arr)
		env[p] = arr.Select(bmc.NewConstantExpr64(0), width, true)
	}
	return env, ptrs, arrays
}

func max1(n uint) uint {
	if n == 0 {
		return 1
	}
	return n
}

func (x *Executor) freshArray(size uint) *bmc.Array {
	x.arrayID++
	return bmc.NewArray(x.arrayID, size)
}

// lowerBlock substitutes every non-terminator, non-phi instruction of
// nd.key.block into nd's environment.
func (x *Executor) lowerBlock(nd *node) {
	instrs := nd.key.block.Instrs
	for i, instr := range instrs {
		if i == len(instrs)-1 {
			break // terminator: handled by the caller.
		}
		switch instr := instr.(type) {
		case *ssa.Phi:
			// Resolved in mergeEnv.
		case *ssa.BinOp:
			nd.env[instr] = x.lowerBinOp(nd, instr)
		case *ssa.UnOp:
			x.lowerUnOp(nd, instr)
		case *ssa.Convert, *ssa.ChangeType:
			v := instr.(ssa.Value)
			var rands [8]*ssa.Value
			ops := instr.Operands(rands[:0])
			if len(ops) > 0 && *ops[0] != nil {
				src := x.valueExpr(nd, *ops[0])
				signed := !isUnsigned((*ops[0]).Type())
				nd.env[v] = bmc.NewCastExpr(src, typeWidth(v.Type()), signed)
			}
		case *ssa.Alloc:
			x.lowerAlloc(nd, instr)
		case *ssa.Store:
			x.lowerStore(nd, instr)
		case *ssa.IndexAddr:
			x.lowerIndexAddr(nd, instr)
		case *ssa.FieldAddr:
			x.lowerFieldAddr(nd, instr)
		case *ssa.Call:
			x.lowerCall(nd, instr)
		case *ssa.Extract:
			nd.env[instr] = x.opaqueValue(nd, typeWidth(instr.Type()))
		case *ssa.Panic:
			nd.panicLit = bmc.NewSymbolExpr(fmt.Sprintf("panic@b%d@%d", nd.key.block.Index, nd.key.depth))
		default:
			// Out of scope (maps, channels, closures, ...): any downstream
			// use of this instruction's value falls back to an opaque
			// symbolic value via valueExpr.
		}
	}
}

func (x *Executor) lowerBinOp(nd *node, instr *ssa.BinOp) bmc.Expr {
	lhs := x.valueExpr(nd, instr.X)
	rhs := x.valueExpr(nd, instr.Y)
	unsigned := isUnsigned(instr.X.Type())

	op, ok := binOpOf(instr.Op, unsigned)
	if !ok {
		return x.opaqueValue(nd, typeWidth(instr.Type()))
	}
	return bmc.NewBinaryExpr(op, lhs, rhs)
}

func binOpOf(tok token.Token, unsigned bool) (bmc.BinaryOp, bool) {
	switch tok {
	case token.ADD:
		return bmc.ADD, true
	case token.SUB:
		return bmc.SUB, true
	case token.MUL:
		return bmc.MUL, true
	case token.QUO:
		if unsigned {
			return bmc.UDIV, true
		}
		return bmc.SDIV, true
	case token.REM:
		if unsigned {
			return bmc.UREM, true
		}
		return bmc.SREM, true
	case token.AND:
		return bmc.AND, true
	case token.OR:
		return bmc.OR, true
	case token.XOR:
		return bmc.XOR, true
	case token.SHL:
		return bmc.SHL, true
	case token.SHR:
		if unsigned {
			return bmc.LSHR, true
		}
		return bmc.ASHR, true
	case token.LSS:
		if unsigned {
			return bmc.ULT, true
		}
		return bmc.SLT, true
	case token.LEQ:
		if unsigned {
			return bmc.ULE, true
		}
		return bmc.SLE, true
	case token.GTR:
		if unsigned {
			return bmc.UGT, true
		}
		return bmc.SGT, true
	case token.GEQ:
		if unsigned {
			return bmc.UGE, true
		}
		return bmc.SGE, true
	case token.EQL:
		return bmc.EQ, true
	case token.NEQ:
		return bmc.NE, true
	default:
		return 0, false
	}
}

func (x *Executor) lowerUnOp(nd *node, instr *ssa.UnOp) {
	switch instr.Op {
	case token.SUB:
		v := x.valueExpr(nd, instr.X)
		nd.env[instr] = bmc.NewBinaryExpr(bmc.SUB, bmc.NewConstantExpr(0, typeWidth(instr.Type())), v)
	case token.NOT:
		v := x.valueExpr(nd, instr.X)
		nd.env[instr] = bmc.NewNotExpr(v)
	case token.MUL:
		ptr, ok := nd.ptrs[instr.X]
		if !ok {
			nd.env[instr] = x.opaqueValue(nd, typeWidth(instr.Type()))
			return
		}
		v, _ := nd.arrays.Get(ptr.id)
		arr := v.(*bmc.Array)
		nd.env[instr] = arr.Select(ptr.offset, typeWidth(instr.Type()), true)
	default:
		nd.env[instr] = x.opaqueValue(nd, typeWidth(instr.Type()))
	}
}

func (x *Executor) lowerAlloc(nd *node, instr *ssa.Alloc) {
	var byteSize uint = 8
	if ptr, ok := instr.Type().Underlying().(*types.Pointer); ok {
		byteSize = max1(typeWidth(ptr.Elem()) / 8)
	}
	arr := x.freshArray(byteSize)
	nd.arrays = nd.arrays.Set(arr.ID, arr)
	nd.ptrs[instr] = &pointerVal{id: arr.ID, offset: bmc.NewConstantExpr64(0)}
}

func (x *Executor) lowerStore(nd *node, instr *ssa.Store) {
	ptr, ok := nd.ptrs[instr.Addr]
	if !ok {
		return // address not tracked precisely: drop the write (scope limitation).
	}
	val := x.valueExpr(nd, instr.Val)
	v, _ := nd.arrays.Get(ptr.id)
	arr := v.(*bmc.Array)
	nd.arrays = nd.arrays.Set(ptr.id, arr.Store(ptr.offset, val, true))
}

func (x *Executor) lowerIndexAddr(nd *node, instr *ssa.IndexAddr) {
	base, ok := nd.ptrs[instr.X]
	if !ok {
		return
	}
	idx := x.valueExpr(nd, instr.Index)
	idx64 := bmc.NewCastExpr(idx, bmc.Width64, false)
	var elemWidth uint = bmc.Width64
	if ptr, ok := instr.Type().Underlying().(*types.Pointer); ok {
		elemWidth = typeWidth(ptr.Elem())
	}
	elemBytes := bmc.NewConstantExpr64(uint64(max1(elemWidth) / 8))
	offset := bmc.NewBinaryExpr(bmc.ADD, base.offset, bmc.NewBinaryExpr(bmc.MUL, idx64, elemBytes))
	nd.ptrs[instr] = &pointerVal{id: base.id, offset: offset}
}

func (x *Executor) lowerFieldAddr(nd *node, instr *ssa.FieldAddr) {
	base, ok := nd.ptrs[instr.X]
	if !ok {
		return
	}
	offset := bmc.NewBinaryExpr(bmc.ADD, base.offset, bmc.NewConstantExpr64(uint64(instr.Field*8)))
	nd.ptrs[instr] = &pointerVal{id: base.id, offset: offset}
}

func (x *Executor) lowerCall(nd *node, instr *ssa.Call) {
	if instr.Call.Signature().Results().Len() != 1 {
		return // multi-value results are resolved per-Extract, opaquely.
	}
	nd.env[instr] = x.opaqueValue(nd, typeWidth(instr.Type()))
}

// opaqueValue returns a fresh, otherwise-unconstrained symbolic value,
// used for anything this executor does not model precisely: call results,
// and any instruction kind outside its scope.
func (x *Executor) opaqueValue(nd *node, width uint) bmc.Expr {
	if width == 0 {
		width = bmc.Width64
	}
	arr := x.freshArray(max1(width) / 8)
	nd.arrays = nd.arrays.Set(arr.ID, arr)
	return arr.Select(bmc.NewConstantExpr64(0), width, true)
}

// valueExpr resolves v in nd's environment, treating *ssa.Const directly
// and falling back to a fresh opaque value for anything never bound (an
// out-of-scope instruction, or a pointer-typed value used as a scalar).
func (x *Executor) valueExpr(nd *node, v ssa.Value) bmc.Expr {
	if c, ok := v.(*ssa.Const); ok {
		return constExpr(c)
	}
	if e, ok := nd.env[v]; ok {
		return e
	}
	return x.opaqueValue(nd, typeWidth(v.Type()))
}

// constExpr translates an SSA constant into a theory literal. Only the
// boolean and integer kinds this executor models are handled; anything
// else (strings, floats, nil) becomes a zero of the constant's width,
// which is sound for reachability of panics that don't depend on it.
func constExpr(c *ssa.Const) bmc.Expr {
	width := typeWidth(c.Type())
	if width == bmc.WidthBool && c.Value != nil {
		return bmc.NewBoolConstantExpr(constant.BoolVal(c.Value))
	}
	if c.Value != nil && c.Value.Kind() == constant.Int {
		if v, ok := constant.Int64Val(c.Value); ok {
			return bmc.NewConstantExpr(uint64(v), width)
		}
	}
	return bmc.NewConstantExpr(0, width)
}
