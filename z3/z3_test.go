package z3_test

import (
	"testing"

	"github.com/pathbmc/pathbmc"
	"github.com/pathbmc/pathbmc/z3"
)

func solve(t *testing.T, s *z3.Solver, constraints ...bmc.Expr) (bmc.Result, bmc.Model) {
	t.Helper()
	s.Reset()
	for _, c := range constraints {
		s.Assert(c)
	}
	result, err := s.Solve()
	if err != nil {
		t.Fatal(err)
	}
	if result == bmc.Sat {
		return result, s.Model()
	}
	return result, nil
}

func byteOf(t *testing.T, model bmc.Model, array *bmc.Array, index uint64) uint64 {
	t.Helper()
	v := model.Eval(array.Select(bmc.NewConstantExpr64(index), bmc.Width8, false))
	c, ok := v.(*bmc.ConstantExpr)
	if !ok {
		t.Fatalf("expected constant, got %T", v)
	}
	return c.Value
}

func TestSolver_Solve(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, bmc.NewBoolConstantExpr(true)); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("False", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, bmc.NewBoolConstantExpr(false)); result != bmc.Unsat {
				t.Fatal("expected unsatisfiable")
			}
		})
	})

	t.Run("Array", func(t *testing.T) {
		t.Run("Width8", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			array := bmc.NewArray(100, 1)
			result, model := solve(t, s, bmc.NewBinaryExpr(bmc.EQ,
				array.Select(bmc.NewConstantExpr(0, 64), 8, false),
				bmc.NewConstantExpr(10, 8),
			))
			if result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
			if got := byteOf(t, model, array, 0); got != 10 {
				t.Fatalf("got %d, expected 10", got)
			}
		})
		t.Run("Width16", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			array := bmc.NewArray(100, 2)
			result, model := solve(t, s, bmc.NewBinaryExpr(bmc.EQ,
				array.Select(bmc.NewConstantExpr(0, 64), 16, false),
				bmc.NewConstantExpr(0xAABB, 16),
			))
			if result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
			if got := byteOf(t, model, array, 0); got != 0xAA {
				t.Fatalf("got %#x, expected 0xAA", got)
			}
			if got := byteOf(t, model, array, 1); got != 0xBB {
				t.Fatalf("got %#x, expected 0xBB", got)
			}
		})
	})

	t.Run("NotOptimized", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		if result, _ := solve(t, s, bmc.NewNotOptimizedExpr(bmc.NewBoolConstantExpr(true))); result != bmc.Sat {
			t.Fatal("expected satisfiable")
		}
	})

	t.Run("Extract", func(t *testing.T) {
		t.Run("Bool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			if result, _ := solve(t, s, &bmc.ExtractExpr{
				Expr:   bmc.NewConstantExpr(0x04, 64),
				Offset: 2,
				Width:  1,
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}

			if result, _ := solve(t, s, &bmc.ExtractExpr{
				Expr:   bmc.NewConstantExpr(0x04, 64),
				Offset: 6,
				Width:  1,
			}); result != bmc.Unsat {
				t.Fatal("expected unsatisfiable")
			}
		})
		t.Run("Int", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.ExtractExpr{
					Expr:   bmc.NewConstantExpr(0xAABB, 16),
					Offset: 8,
					Width:  8,
				},
				RHS: bmc.NewConstantExpr(0xAA, 8),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("Cast", func(t *testing.T) {
		t.Run("Signed", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			value := -200
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.CastExpr{
					Src:    bmc.NewConstantExpr(uint64(uint16(int16(value))), 16),
					Width:  32,
					Signed: true,
				},
				RHS: bmc.NewConstantExpr(uint64(uint32(int32(value))), 32),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SignedBool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			value := -1
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.CastExpr{
					Src:    bmc.NewBoolConstantExpr(true),
					Width:  16,
					Signed: true,
				},
				RHS: bmc.NewConstantExpr(uint64(uint16(int16(value))), 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})

		t.Run("Unsigned", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.CastExpr{
					Src:   bmc.NewConstantExpr(200, 16),
					Width: 32,
				},
				RHS: bmc.NewConstantExpr(200, 32),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("UnsignedBool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.CastExpr{
					Src:   bmc.NewBoolConstantExpr(true),
					Width: 16,
				},
				RHS: bmc.NewConstantExpr(1, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("Not", func(t *testing.T) {
		t.Run("Bool", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.NotExpr{
					Expr: bmc.NewBoolConstantExpr(true),
				},
				RHS: bmc.NewBoolConstantExpr(false),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("Int", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.NotExpr{
					Expr: bmc.NewConstantExpr(0xFF00FF00, 16),
				},
				RHS: bmc.NewConstantExpr(0x00FF00FF, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
	})

	t.Run("BinaryExpr", func(t *testing.T) {
		t.Run("ADD", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.ADD,
					LHS: bmc.NewConstantExpr(1000, 16),
					RHS: bmc.NewConstantExpr(200, 16),
				},
				RHS: bmc.NewConstantExpr(1200, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SUB", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.SUB,
					LHS: bmc.NewConstantExpr(1000, 16),
					RHS: bmc.NewConstantExpr(200, 16),
				},
				RHS: bmc.NewConstantExpr(800, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("MUL", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.MUL,
					LHS: bmc.NewConstantExpr(30, 16),
					RHS: bmc.NewConstantExpr(200, 16),
				},
				RHS: bmc.NewConstantExpr(6000, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("UDIV", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.UDIV,
					LHS: bmc.NewConstantExpr(5000, 16),
					RHS: bmc.NewConstantExpr(30, 16),
				},
				RHS: bmc.NewConstantExpr(166, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SDIV", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x, y := -30, -166
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.SDIV,
					LHS: bmc.NewConstantExpr(5000, 16),
					RHS: bmc.NewConstantExpr(uint64(uint16(int16(x))), 16),
				},
				RHS: bmc.NewConstantExpr(uint64(uint16(int16(y))), 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("UREM", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.UREM,
					LHS: bmc.NewConstantExpr(5000, 16),
					RHS: bmc.NewConstantExpr(30, 16),
				},
				RHS: bmc.NewConstantExpr(20, 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SREM", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			x, y := -30, 20
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op: bmc.EQ,
				LHS: &bmc.BinaryExpr{
					Op:  bmc.SREM,
					LHS: bmc.NewConstantExpr(5000, 16),
					RHS: bmc.NewConstantExpr(uint64(uint16(int16(x))), 16),
				},
				RHS: bmc.NewConstantExpr(uint64(uint16(int16(y))), 16),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("AND", func(t *testing.T) {
			t.Run("Bool", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.AND,
						LHS: bmc.NewBoolConstantExpr(true),
						RHS: bmc.NewBoolConstantExpr(true),
					},
					RHS: bmc.NewBoolConstantExpr(true),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
			t.Run("Int", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.AND,
						LHS: bmc.NewConstantExpr(0x0FF0, 16),
						RHS: bmc.NewConstantExpr(0xFF00, 16),
					},
					RHS: bmc.NewConstantExpr(0x0F00, 16),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
		})
		t.Run("OR", func(t *testing.T) {
			t.Run("Bool", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.OR,
						LHS: bmc.NewBoolConstantExpr(true),
						RHS: bmc.NewBoolConstantExpr(false),
					},
					RHS: bmc.NewBoolConstantExpr(true),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
			t.Run("Int", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.OR,
						LHS: bmc.NewConstantExpr(0x0FF0, 16),
						RHS: bmc.NewConstantExpr(0xFF00, 16),
					},
					RHS: bmc.NewConstantExpr(0xFFF0, 16),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
		})
		t.Run("XOR", func(t *testing.T) {
			t.Run("Bool", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.XOR,
						LHS: bmc.NewBoolConstantExpr(true),
						RHS: bmc.NewBoolConstantExpr(true),
					},
					RHS: bmc.NewBoolConstantExpr(false),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
			t.Run("Int", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.XOR,
						LHS: bmc.NewConstantExpr(0x0FF0, 16),
						RHS: bmc.NewConstantExpr(0xFF00, 16),
					},
					RHS: bmc.NewConstantExpr(0xF0F0, 16),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
		})
		t.Run("SHL", func(t *testing.T) {
			t.Run("Constant", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.SHL,
						LHS: bmc.NewConstantExpr(0x0FF0, 16),
						RHS: bmc.NewConstantExpr(4, 16),
					},
					RHS: bmc.NewConstantExpr(0xFF00, 16),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
			t.Run("Symbolic", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				array := bmc.NewArray(100, 2)
				result, model := solve(t, s, &bmc.BinaryExpr{
					Op: bmc.EQ,
					LHS: &bmc.BinaryExpr{
						Op:  bmc.SHL,
						LHS: bmc.NewConstantExpr(0x0FF0, 16),
						RHS: array.Select(bmc.NewConstantExpr64(0), 16, false),
					},
					RHS: bmc.NewConstantExpr(0xFF00, 16),
				})
				if result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
				if got := byteOf(t, model, array, 1); got != 4 {
					t.Fatalf("got %d, expected 4", got)
				}
			})
		})
		t.Run("EQ", func(t *testing.T) {
			t.Run("Bool", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op:  bmc.EQ,
					LHS: bmc.NewBoolConstantExpr(true),
					RHS: bmc.NewBoolConstantExpr(true),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
			t.Run("ConstantTrue", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				array := bmc.NewArray(100, 1)
				result, model := solve(t, s, &bmc.BinaryExpr{
					Op:  bmc.EQ,
					LHS: bmc.NewBoolConstantExpr(true),
					RHS: array.Select(bmc.NewConstantExpr64(0), 1, false),
				})
				if result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
				if got := byteOf(t, model, array, 0); got != 1 {
					t.Fatalf("got %d, expected 1", got)
				}
			})
			t.Run("ConstantNotTrue", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				array := bmc.NewArray(100, 1)
				result, model := solve(t, s, &bmc.BinaryExpr{
					Op:  bmc.EQ,
					LHS: bmc.NewBoolConstantExpr(false),
					RHS: array.Select(bmc.NewConstantExpr64(0), 1, false),
				})
				if result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
				if got := byteOf(t, model, array, 0); got != 0 {
					t.Fatalf("got %d, expected 0", got)
				}
			})
			t.Run("Int", func(t *testing.T) {
				s := z3.NewSolver()
				defer MustCloseSolver(s)
				if result, _ := solve(t, s, &bmc.BinaryExpr{
					Op:  bmc.EQ,
					LHS: bmc.NewConstantExpr(10, 32),
					RHS: bmc.NewConstantExpr(10, 32),
				}); result != bmc.Sat {
					t.Fatal("expected satisfiable")
				}
			})
		})
		t.Run("ULT", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op:  bmc.ULT,
				LHS: bmc.NewConstantExpr(9, 32),
				RHS: bmc.NewConstantExpr(10, 32),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("ULE", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op:  bmc.ULE,
				LHS: bmc.NewConstantExpr(10, 32),
				RHS: bmc.NewConstantExpr(10, 32),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SLT", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op:  bmc.SLT,
				LHS: bmc.NewConstantExpr(0xF0, 8),
				RHS: bmc.NewConstantExpr(0x00, 8),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("SLE", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if result, _ := solve(t, s, &bmc.BinaryExpr{
				Op:  bmc.SLE,
				LHS: bmc.NewConstantExpr(0xF0, 8),
				RHS: bmc.NewConstantExpr(0xF0, 8),
			}); result != bmc.Sat {
				t.Fatal("expected satisfiable")
			}
		})
	})
}

func TestSolver_UnsatCore(t *testing.T) {
	s := z3.NewSolver()
	defer MustCloseSolver(s)

	a := bmc.NewSymbolExpr("a")
	b := bmc.NewSymbolExpr("b")

	s.Reset()
	s.Assert(a)
	s.Assert(bmc.NewNotExpr(a))
	s.Assert(b)

	result, err := s.Solve()
	if err != nil {
		t.Fatal(err)
	}
	if result != bmc.Unsat {
		t.Fatal("expected unsatisfiable")
	}

	core := s.UnsatCore()
	if len(core) == 0 {
		t.Fatal("expected a non-empty unsat core")
	}
	for _, e := range core {
		if e.String() == b.String() {
			t.Fatal("unsat core should not include the unrelated assertion")
		}
	}
}

func TestSolver_Propositional(t *testing.T) {
	s := z3.NewSolver()
	defer MustCloseSolver(s)

	a := bmc.NewSymbolExpr("a")
	b := bmc.NewSymbolExpr("b")

	t.Run("Impl", func(t *testing.T) {
		if result, _ := solve(t, s, bmc.NewImplExpr(a, b), a, bmc.NewNotExpr(b)); result != bmc.Unsat {
			t.Fatal("expected unsatisfiable")
		}
	})
	t.Run("Iff", func(t *testing.T) {
		if result, _ := solve(t, s, bmc.NewIffExpr(a, b), a, bmc.NewNotExpr(b)); result != bmc.Unsat {
			t.Fatal("expected unsatisfiable")
		}
	})
	t.Run("Ite", func(t *testing.T) {
		if result, _ := solve(t, s, bmc.NewIteExpr(a, bmc.NewBoolConstantExpr(true), bmc.NewBoolConstantExpr(false)), bmc.NewNotExpr(a)); result != bmc.Unsat {
			t.Fatal("expected unsatisfiable")
		}
	})
}

func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
