package bmc_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pathbmc/pathbmc"
)

func TestPreNNF(t *testing.T) {
	a, b := bmc.NewSymbolExpr("a"), bmc.NewSymbolExpr("b")

	t.Run("Impl", func(t *testing.T) {
		out := bmc.PreNNF([]bmc.Expr{bmc.NewImplExpr(a, b)})[0]
		want := bmc.NewBinaryExpr(bmc.OR, bmc.NewNotExpr(a), b)
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("Impl rewrite mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Iff", func(t *testing.T) {
		// a <-> b == (not a or b) and (not b or a)
		out := bmc.PreNNF([]bmc.Expr{bmc.NewIffExpr(a, b)})[0]
		want := bmc.NewBinaryExpr(bmc.AND,
			bmc.NewBinaryExpr(bmc.OR, bmc.NewNotExpr(a), b),
			bmc.NewBinaryExpr(bmc.OR, bmc.NewNotExpr(b), a))
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("Iff rewrite mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("BoolWidthIte", func(t *testing.T) {
		// ite(a, b, c), all boolean-width, rewrites to (a and b) or (not a and c).
		c := bmc.NewSymbolExpr("c")
		out := bmc.PreNNF([]bmc.Expr{bmc.NewIteExpr(a, b, c)})[0]
		want := bmc.NewBinaryExpr(bmc.OR,
			bmc.NewBinaryExpr(bmc.AND, a, b),
			bmc.NewBinaryExpr(bmc.AND, bmc.NewNotExpr(a), c))
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("boolean-width Ite rewrite mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("TheoryWidthIteUntouched", func(t *testing.T) {
		// A non-boolean ite (selecting between theory terms) is left as an
		// opaque leaf: only the propositional layer is rewritten here.
		ite := bmc.NewIteExpr(a, bmc.NewConstantExpr(1, 32), bmc.NewConstantExpr(2, 32))
		out := bmc.PreNNF([]bmc.Expr{ite})[0]
		if diff := cmp.Diff(ite, out); diff != "" {
			t.Errorf("theory-width Ite should pass through unchanged (-want +got):\n%s", diff)
		}
	})

	t.Run("BoolWidthXor", func(t *testing.T) {
		// a xor b == (a or b) and (not a or not b), for boolean-width xor only.
		xor := bmc.NewBinaryExpr(bmc.XOR, a, b)
		out := bmc.PreNNF([]bmc.Expr{xor})[0]
		want := bmc.NewBinaryExpr(bmc.AND,
			bmc.NewBinaryExpr(bmc.OR, a, b),
			bmc.NewBinaryExpr(bmc.OR, bmc.NewNotExpr(a), bmc.NewNotExpr(b)))
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("boolean-width Xor rewrite mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("WideXorUntouched", func(t *testing.T) {
		// A wide (non-boolean) xor is a theory operator, not a propositional
		// connective: pre-NNF must leave it alone.
		x, y := bmc.NewSymbolExpr("x"), bmc.NewSymbolExpr("y")
		wide := bmc.NewBinaryExpr(bmc.XOR, &bmc.SymbolExpr{Name: x.Name, Width: 32}, &bmc.SymbolExpr{Name: y.Name, Width: 32})
		out := bmc.PreNNF([]bmc.Expr{wide})[0]
		if diff := cmp.Diff(wide, out); diff != "" {
			t.Errorf("wide Xor should pass through unchanged (-want +got):\n%s", diff)
		}
	})

	t.Run("TheoryAtomUntouched", func(t *testing.T) {
		x, y := &bmc.SymbolExpr{Name: "x", Width: 32}, bmc.NewConstantExpr(1, 32)
		comparison := bmc.NewBinaryExpr(bmc.SLT, x, y)
		out := bmc.PreNNF([]bmc.Expr{comparison})[0]
		if out != comparison {
			t.Fatal("expected theory atom to pass through PreNNF unchanged")
		}
	})
}

func TestNNF(t *testing.T) {
	a, b := bmc.NewSymbolExpr("a"), bmc.NewSymbolExpr("b")

	// not(a and b) == (not a) or (not b)
	in := bmc.NewNotExpr(bmc.NewBinaryExpr(bmc.AND, a, b))
	out := bmc.NNF(in)
	want := bmc.NewBinaryExpr(bmc.OR, bmc.NewNotExpr(a), bmc.NewNotExpr(b))
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("De Morgan rewrite mismatch (-want +got):\n%s", diff)
	}
}

func TestBooleanAbstraction(t *testing.T) {
	a := bmc.NewSymbolExpr("a")

	t.Run("DropsTheoryAtom", func(t *testing.T) {
		theoryAtom := bmc.NewBinaryExpr(bmc.SLT, &bmc.SymbolExpr{Name: "x", Width: 32}, bmc.NewConstantExpr(1, 32))
		out := bmc.BooleanAbstraction([]bmc.Expr{theoryAtom})
		if len(out) != 0 {
			t.Fatalf("expected the theory atom to erase to true and be dropped, got %v", out)
		}
	})

	t.Run("KeepsBooleanSymbol", func(t *testing.T) {
		out := bmc.BooleanAbstraction([]bmc.Expr{a})
		if len(out) != 1 {
			t.Fatalf("expected the boolean symbol to survive, got %v", out)
		}
	})
}
