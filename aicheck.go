package bmc

import (
	"go/constant"
	"go/token"
	"math"

	"golang.org/x/tools/go/ssa"
)

// IntervalPathChecker is the optional abstract-interpretation path checker:
// a concrete forward interval analysis run over a CFG sliced to one
// candidate trace. No ecosystem interval-domain library exists for this
// (see DESIGN.md), so the domain itself is hand-rolled; everything around
// it (the Statement/active-literal plumbing) follows the same interfaces
// the SMT path checker uses.
type IntervalPathChecker struct{}

// interval is a closed signed 64-bit range, with Bottom marking the empty
// range reached by an infeasible constraint.
type interval struct {
	Lo, Hi int64
	Bottom bool
}

func fullInterval() interval            { return interval{Lo: math.MinInt64, Hi: math.MaxInt64} }
func pointInterval(v int64) interval    { return interval{Lo: v, Hi: v} }
func (a interval) isBottom() bool       { return a.Bottom || a.Lo > a.Hi }
func (a interval) meet(b interval) interval {
	if a.isBottom() || b.isBottom() {
		return interval{Bottom: true}
	}
	lo, hi := maxInt64(a.Lo, b.Lo), minInt64(a.Hi, b.Hi)
	if lo > hi {
		return interval{Bottom: true}
	}
	return interval{Lo: lo, Hi: hi}
}

func (a interval) add(b interval) interval {
	if a.isBottom() || b.isBottom() {
		return interval{Bottom: true}
	}
	return interval{Lo: addSatInt64(a.Lo, b.Lo), Hi: addSatInt64(a.Hi, b.Hi)}
}

func (a interval) sub(b interval) interval {
	if a.isBottom() || b.isBottom() {
		return interval{Bottom: true}
	}
	return interval{Lo: addSatInt64(a.Lo, -b.Hi), Hi: addSatInt64(a.Hi, -b.Lo)}
}

func (a interval) neg() interval {
	if a.isBottom() {
		return a
	}
	return interval{Lo: negSatInt64(a.Hi), Hi: negSatInt64(a.Lo)}
}

func addSatInt64(a, b int64) int64 {
	if a > 0 && b > math.MaxInt64-a {
		return math.MaxInt64
	}
	if a < 0 && b < math.MinInt64-a {
		return math.MinInt64
	}
	return a + b
}

func negSatInt64(a int64) int64 {
	if a == math.MinInt64 {
		return math.MaxInt64
	}
	return -a
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// comparisonInfo records a tracked comparison BinOp's operands so an If
// terminator that branches on it can be narrowed.
type comparisonInfo struct {
	Op   token.Token
	X, Y ssa.Value
}

// intervalState is the mutable analysis state threaded along one trace walk.
type intervalState struct {
	env      map[ssa.Value]interval
	defined  map[ssa.Value]ssa.Instruction
	compares map[ssa.Value]comparisonInfo
	phiSrc   map[ssa.Value]*ssa.BasicBlock
}

func newIntervalState() *intervalState {
	return &intervalState{
		env:      make(map[ssa.Value]interval),
		defined:  make(map[ssa.Value]ssa.Instruction),
		compares: make(map[ssa.Value]comparisonInfo),
		phiSrc:   make(map[ssa.Value]*ssa.BasicBlock),
	}
}

func (s *intervalState) valueInterval(v ssa.Value) interval {
	if c, ok := v.(*ssa.Const); ok {
		if c.Value != nil && c.Value.Kind() == constant.Int {
			if iv, ok := constant.Int64Val(c.Value); ok {
				return pointInterval(iv)
			}
		}
		return fullInterval()
	}
	if iv, ok := s.env[v]; ok {
		return iv
	}
	return fullInterval()
}

// PathAnalyze implements AbstractInterpreter: it walks trace as a
// straight-line program, tracking integer intervals, and reports bottom as
// soon as an assume narrows some tracked value's interval to empty.
func (c *IntervalPathChecker) PathAnalyze(trace BmcTrace) (bool, []Statement) {
	s := newIntervalState()

	for i, block := range trace {
		for _, instr := range block.Instrs {
			switch instr := instr.(type) {
			case *ssa.BinOp:
				s.defined[instr] = instr
				switch instr.Op {
				case token.ADD:
					s.env[instr] = s.valueInterval(instr.X).add(s.valueInterval(instr.Y))
				case token.SUB:
					s.env[instr] = s.valueInterval(instr.X).sub(s.valueInterval(instr.Y))
				case token.LSS, token.LEQ, token.GTR, token.GEQ, token.EQL, token.NEQ:
					s.compares[instr] = comparisonInfo{Op: instr.Op, X: instr.X, Y: instr.Y}
				default:
					// Multiplication, division, shifts, bitwise ops: not
					// tracked precisely (see scenario 4 in the testable
					// properties -- these are meant to fall through to SMT).
				}
			case *ssa.UnOp:
				s.defined[instr] = instr
				if instr.Op == token.SUB {
					s.env[instr] = s.valueInterval(instr.X).neg()
				}
			case *ssa.Convert, *ssa.ChangeType:
				if v, ok := instr.(ssa.Value); ok {
					var rands [8]*ssa.Value
					ops := instr.Operands(rands[:0])
					s.defined[v] = instr
					if len(ops) > 0 && *ops[0] != nil {
						s.env[v] = s.valueInterval(*ops[0])
					}
				}
			case *ssa.Phi:
				s.defined[instr] = instr
				predIdx := -1
				if i > 0 {
					for idx, pred := range instr.Block().Preds {
						if pred == trace[i-1] {
							predIdx = idx
							break
						}
					}
				}
				if predIdx >= 0 && predIdx < len(instr.Edges) {
					s.env[instr] = s.valueInterval(instr.Edges[predIdx])
					s.phiSrc[instr] = trace[i-1]
				} else {
					s.env[instr] = fullInterval()
				}
			case *ssa.If:
				if i+1 >= len(trace) {
					continue
				}
				succIdx := -1
				for idx, succ := range block.Succs {
					if succ == trace[i+1] {
						succIdx = idx
						break
					}
				}
				if succIdx < 0 {
					continue
				}
				assumedTrue := succIdx == 0

				cmp, ok := s.compares[instr.Cond]
				if !ok {
					continue // bare boolean condition: AI has nothing to narrow.
				}

				xi, yi := s.valueInterval(cmp.X), s.valueInterval(cmp.Y)
				nx, ny := narrow(cmp.Op, assumedTrue, xi, yi)
				bottom := nx.isBottom() || ny.isBottom()
				if !isConst(cmp.X) {
					s.env[cmp.X] = nx
				}
				if !isConst(cmp.Y) {
					s.env[cmp.Y] = ny
				}

				if bottom {
					roots := []ssa.Value{cmp.X, cmp.Y}
					relevant := []Statement{{Kind: StmtAssumeEdge, Src: block, Dst: trace[i+1]}}
					relevant = append(relevant, s.relevantStatements(roots)...)
					return true, relevant
				}
			}
		}
	}
	return false, nil
}

func isConst(v ssa.Value) bool {
	_, ok := v.(*ssa.Const)
	return ok
}

// narrow returns the narrowed intervals for x and y implied by assuming cmp
// (or its negation, if !assumedTrue) holds.
func narrow(op token.Token, assumedTrue bool, x, y interval) (nx, ny interval) {
	if !assumedTrue {
		op = negateComparison(op)
	}
	switch op {
	case token.LSS: // x < y
		return x.meet(interval{Lo: math.MinInt64, Hi: y.Hi - 1}), y.meet(interval{Lo: x.Lo + 1, Hi: math.MaxInt64})
	case token.LEQ: // x <= y
		return x.meet(interval{Lo: math.MinInt64, Hi: y.Hi}), y.meet(interval{Lo: x.Lo, Hi: math.MaxInt64})
	case token.GTR: // x > y
		return x.meet(interval{Lo: y.Lo + 1, Hi: math.MaxInt64}), y.meet(interval{Lo: math.MinInt64, Hi: x.Hi - 1})
	case token.GEQ: // x >= y
		return x.meet(interval{Lo: y.Lo, Hi: math.MaxInt64}), y.meet(interval{Lo: math.MinInt64, Hi: x.Hi})
	case token.EQL: // x == y
		m := x.meet(y)
		return m, m
	default: // NEQ and anything else: intervals can't represent disequality precisely.
		return x, y
	}
}

func negateComparison(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	default:
		return op
	}
}

// relevantStatements walks the definition closure of roots and classifies
// each defining instruction per the derivation rules in §4.6.
func (s *intervalState) relevantStatements(roots []ssa.Value) []Statement {
	visited := make(map[ssa.Value]bool)
	var order []ssa.Instruction

	var visit func(v ssa.Value)
	visit = func(v ssa.Value) {
		if v == nil || visited[v] {
			return
		}
		visited[v] = true
		instr, ok := s.defined[v]
		if !ok {
			return
		}
		order = append(order, instr)
		var rands [8]*ssa.Value
		for _, op := range instr.Operands(rands[:0]) {
			if op != nil && *op != nil {
				visit(*op)
			}
		}
	}
	for _, v := range roots {
		visit(v)
	}

	out := make([]Statement, 0, len(order))
	for _, instr := range order {
		if phi, ok := instr.(*ssa.Phi); ok {
			out = append(out, Statement{Kind: StmtPhiAssign, Src: s.phiSrc[phi], Dst: phi.Block()})
			continue
		}
		out = append(out, Statement{Kind: StmtGeneric, Parent: instr.Block()})
	}
	return out
}
