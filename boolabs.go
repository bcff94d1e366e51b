package bmc

// Boolean abstraction rewrites a verification condition's formulas down to
// the propositional skeleton of block/edge literals the main solver reasons
// about: eliminate higher-order connectives (pre-NNF), push negations to
// literals (NNF), then erase every non-Boolean atom to true (BA) and drop
// the clauses that reduced to true.
//
// Every stage is a leaf-up DAG visit memoized by node identity, so shared
// subexpressions are rewritten once.

var trueConst = NewBoolConstantExpr(true)

// PreNNF eliminates ->, <->, boolean ite, and boolean xor from every formula
// in f, replacing them with and/or/not. Theory atoms (comparisons,
// arithmetic, arrays, non-boolean ite) are left untouched as opaque leaves:
// pre-NNF only rewrites the propositional connective layer.
func PreNNF(f []Expr) []Expr {
	p := &preNNFVisitor{memo: make(map[Expr]Expr)}
	out := make([]Expr, len(f))
	for i, e := range f {
		out[i] = p.rewrite(e)
	}
	return out
}

type preNNFVisitor struct {
	memo map[Expr]Expr
}

func (p *preNNFVisitor) rewrite(e Expr) Expr {
	if v, ok := p.memo[e]; ok {
		return v
	}

	var out Expr
	switch e := e.(type) {
	case *ImplExpr:
		lhs, rhs := p.rewrite(e.LHS), p.rewrite(e.RHS)
		out = NewBinaryExpr(OR, NewNotExpr(lhs), rhs)
	case *IffExpr:
		lhs, rhs := p.rewrite(e.LHS), p.rewrite(e.RHS)
		out = NewBinaryExpr(AND,
			NewBinaryExpr(OR, NewNotExpr(lhs), rhs),
			NewBinaryExpr(OR, NewNotExpr(rhs), lhs))
	case *IteExpr:
		if ExprWidth(e.Cond) != WidthBool || ExprWidth(e.True) != WidthBool {
			out = e // theory-level ite: opaque leaf
			break
		}
		cond, t, f := p.rewrite(e.Cond), p.rewrite(e.True), p.rewrite(e.False)
		out = NewBinaryExpr(OR,
			NewBinaryExpr(AND, cond, t),
			NewBinaryExpr(AND, NewNotExpr(cond), f))
	case *NotExpr:
		out = NewNotExpr(p.rewrite(e.Expr))
	case *BinaryExpr:
		switch {
		case e.Op == AND:
			out = NewBinaryExpr(AND, p.rewrite(e.LHS), p.rewrite(e.RHS))
		case e.Op == OR:
			out = NewBinaryExpr(OR, p.rewrite(e.LHS), p.rewrite(e.RHS))
		case e.Op == XOR && ExprWidth(e) == WidthBool:
			// a xor b == (a or b) and (not a or not b).
			lhs, rhs := p.rewrite(e.LHS), p.rewrite(e.RHS)
			out = NewBinaryExpr(AND,
				NewBinaryExpr(OR, lhs, rhs),
				NewBinaryExpr(OR, NewNotExpr(lhs), NewNotExpr(rhs)))
		case e.Op == EQ && ExprWidth(e.LHS) == WidthBool && ExprWidth(e.RHS) == WidthBool:
			out = NewBinaryExpr(EQ, p.rewrite(e.LHS), p.rewrite(e.RHS))
		default:
			out = e // theory atom: opaque leaf
		}
	default:
		out = e // opaque leaf: constants, symbols, theory terms
	}

	p.memo[e] = out
	return out
}

// NNF pushes negations in e down to literals, standard negation-normal-form
// over the and/or/not/boolean-eq skeleton pre-NNF produces. Everything else
// is an atom: negating one just wraps it.
func NNF(e Expr) Expr {
	n := &nnfVisitor{memo: make(map[nnfKey]Expr)}
	return n.rewrite(e, false)
}

type nnfKey struct {
	e   Expr
	neg bool
}

type nnfVisitor struct {
	memo map[nnfKey]Expr
}

func (n *nnfVisitor) rewrite(e Expr, negate bool) Expr {
	key := nnfKey{e, negate}
	if v, ok := n.memo[key]; ok {
		return v
	}

	var out Expr
	switch e := e.(type) {
	case *NotExpr:
		out = n.rewrite(e.Expr, !negate)
	case *BinaryExpr:
		switch {
		case e.Op == AND:
			if negate { // De Morgan: not(a and b) == (not a) or (not b)
				out = NewBinaryExpr(OR, n.rewrite(e.LHS, true), n.rewrite(e.RHS, true))
			} else {
				out = NewBinaryExpr(AND, n.rewrite(e.LHS, false), n.rewrite(e.RHS, false))
			}
		case e.Op == OR:
			if negate {
				out = NewBinaryExpr(AND, n.rewrite(e.LHS, true), n.rewrite(e.RHS, true))
			} else {
				out = NewBinaryExpr(OR, n.rewrite(e.LHS, false), n.rewrite(e.RHS, false))
			}
		default:
			out = leaf(e, negate)
		}
	default:
		out = leaf(e, negate)
	}

	n.memo[key] = out
	return out
}

// leaf wraps an atom e in not() if negate is set; e is not recursed into --
// it is opaque from NNF's point of view (a boolean symbol, constant, or
// theory atom such as a comparison or boolean equality).
func leaf(e Expr, negate bool) Expr {
	if negate {
		return NewNotExpr(e)
	}
	return e
}

// BooleanAbstraction runs the full abstraction pipeline over the VC vector
// f: pre-NNF, NNF, then the erasure visit, dropping any formula that
// reduced to true.
func BooleanAbstraction(f []Expr) []Expr {
	prenorm := PreNNF(f)

	nnfed := make([]Expr, len(prenorm))
	for i, e := range prenorm {
		nnfed[i] = NNF(e)
	}

	memo := make(map[Expr]Expr)
	out := make([]Expr, 0, len(nnfed))
	for _, e := range nnfed {
		abstracted := baVisit(e, memo)
		if IsConstantTrue(abstracted) {
			continue
		}
		out = append(out, abstracted)
	}
	return out
}

// baVisit is the Stage C erasure visit: keep Boolean-constant atoms, their
// negations, and and/or/boolean-equality over them; replace everything else
// with true.
func baVisit(e Expr, memo map[Expr]Expr) Expr {
	if v, ok := memo[e]; ok {
		return v
	}

	var out Expr
	switch e := e.(type) {
	case *ConstantExpr:
		if e.Width == WidthBool {
			out = e
		} else {
			out = trueConst
		}
	case *SymbolExpr:
		if e.Width == WidthBool {
			out = e
		} else {
			out = trueConst
		}
	case *NotExpr:
		if isPositiveBooleanLiteral(e.Expr) {
			out = NewNotExpr(baVisit(e.Expr, memo))
		} else {
			out = trueConst
		}
	case *BinaryExpr:
		switch {
		case e.Op == AND:
			out = NewBinaryExpr(AND, baVisit(e.LHS, memo), baVisit(e.RHS, memo))
		case e.Op == OR:
			out = NewBinaryExpr(OR, baVisit(e.LHS, memo), baVisit(e.RHS, memo))
		case e.Op == EQ && ExprWidth(e.LHS) == WidthBool && ExprWidth(e.RHS) == WidthBool:
			out = NewBinaryExpr(EQ, baVisit(e.LHS, memo), baVisit(e.RHS, memo))
		default:
			out = trueConst
		}
	default:
		out = trueConst
	}

	memo[e] = out
	return out
}

// isPositiveBooleanLiteral reports whether e is true, false, or a Boolean-
// typed symbol -- the leaves that survive Stage C's erasure untouched.
func isPositiveBooleanLiteral(e Expr) bool {
	switch e := e.(type) {
	case *ConstantExpr:
		return e.Width == WidthBool
	case *SymbolExpr:
		return e.Width == WidthBool
	default:
		return false
	}
}
