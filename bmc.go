// Package bmc implements a path-based bounded model checker: it enumerates
// symbolic paths through a program's control-flow graph under a cheap
// Boolean abstraction and discharges each path's precise verification
// condition with a theory solver, refining the abstraction with blocking
// clauses derived from minimal unsat cores.
package bmc

import (
	"errors"
	"fmt"
)

// Standard widths, shared with the underlying theory-expression DAG.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// Result is the verdict of a solver query or of the engine as a whole.
type Result int

const (
	Sat Result = iota
	Unsat
	Unknown
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

var (
	// ErrSolverTimeout is returned by a solver when it exhausts its time budget.
	ErrSolverTimeout = errors.New("bmc: solver timeout")
	// ErrSolverCanceled is returned by a solver when the caller cancels a query.
	ErrSolverCanceled = errors.New("bmc: solver canceled")
	// ErrSolverResourceLimit is returned by a solver when a resource limit is hit.
	ErrSolverResourceLimit = errors.New("bmc: solver resource limit")
	// ErrSolverUnknown is returned by a solver that cannot decide a query.
	ErrSolverUnknown = errors.New("bmc: solver unknown")

	// ErrStagnation is returned when the refinement loop re-derives a
	// blocking clause it has already asserted.
	ErrStagnation = errors.New("bmc: stagnation, no new blocking clause")
	// ErrActiveLiteralGap is returned when a core literal cannot be mapped
	// back to an active block/edge literal.
	ErrActiveLiteralGap = errors.New("bmc: active literal mapping gap")
)

// assert panics if condition is false. Used for internal invariants that
// indicate a bug in the engine rather than a user-facing error.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
