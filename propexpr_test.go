package bmc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewTupleSymbolExpr_RoundTrip(t *testing.T) {
	src := NewSymbolExpr("b1")
	dst := NewSymbolExpr("b2")
	tup := NewTupleSymbolExpr("e1_2", src, dst)

	if !isTuple(tup) {
		t.Fatal("expected a tuple-encoded symbol")
	}

	gotSrc, gotDst := getTuple(tup)
	if diff := cmp.Diff(src, gotSrc); diff != "" {
		t.Errorf("src mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(dst, gotDst); diff != "" {
		t.Errorf("dst mismatch (-want +got):\n%s", diff)
	}
}

func TestIsTuple_PlainSymbolIsNotATuple(t *testing.T) {
	if isTuple(NewSymbolExpr("b0")) {
		t.Fatal("expected a plain symbol to not be tuple-encoded")
	}
}

func TestGetTuple_PanicsOnNonTupleSymbol(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected getTuple to panic on a non-tuple symbol")
		}
	}()
	getTuple(NewSymbolExpr("b0"))
}

func TestLessExpr_TupleSortsAfterPlain(t *testing.T) {
	plain := NewSymbolExpr("zzz")
	tuple := NewTupleSymbolExpr("aaa", NewSymbolExpr("b0"), NewSymbolExpr("b1"))

	if !lessExpr(plain, tuple) {
		t.Fatal("expected a plain symbol to sort before a tuple-encoded one regardless of name")
	}
	if lessExpr(tuple, plain) {
		t.Fatal("expected a tuple-encoded symbol to never sort before a plain one")
	}
}

func TestLessExpr_FallsBackToCompareExprWithinClass(t *testing.T) {
	a := NewSymbolExpr("a")
	b := NewSymbolExpr("b")

	if got, want := lessExpr(a, b), CompareExpr(a, b) < 0; got != want {
		t.Fatalf("lessExpr(a, b) = %v, want %v (CompareExpr-derived)", got, want)
	}
	if lessExpr(b, a) {
		t.Fatal("expected lessExpr to be antisymmetric for distinct plain symbols")
	}
}
