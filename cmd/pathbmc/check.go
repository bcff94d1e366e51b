package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/pathbmc/pathbmc"
	"github.com/pathbmc/pathbmc/satsolver"
	"github.com/pathbmc/pathbmc/ssaexec"
	"github.com/pathbmc/pathbmc/z3"
)

// CheckFuncPrefix names the functions a package asks pathbmc to verify.
var CheckFuncPrefix = "BmcCheck"

// CheckCommand bound-checks every matching function in a package for a
// reachable panic.
type CheckCommand struct{}

// NewCheckCommand returns a new instance of CheckCommand.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{}
}

// Run executes the "check" subcommand.
func (cmd *CheckCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pathbmc-check", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	bound := fs.Int("bound", 4, "loop unwinding bound")
	mucStrategy := fs.String("muc", "assumptions", "minimal-unsat-core strategy: assumptions, naive, binary-search")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return errors.Errorf("package required")
	} else if fs.NArg() > 1 {
		return errors.Errorf("too many packages specified")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}

	strategy, err := parseMUCStrategy(*mucStrategy)
	if err != nil {
		return err
	}

	initial, err := packages.Load(&packages.Config{
		Mode:  packages.LoadAllSyntax,
		Tests: true,
	}, fs.Args()...)
	if err != nil {
		return errors.WithStack(err)
	} else if packages.PrintErrors(initial) > 0 {
		return errors.Errorf("packages contain errors")
	}

	prog, pkgs := ssautil.AllPackages(initial, ssa.BuilderMode(0))
	for i, pkg := range pkgs {
		if pkg == nil {
			return errors.Errorf("cannot build SSA for package %s", initial[i])
		}
	}
	prog.Build()

	var fns []*ssa.Function
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		for _, m := range pkg.Members {
			if fn, ok := m.(*ssa.Function); ok && strings.HasPrefix(fn.Name(), CheckFuncPrefix) {
				fns = append(fns, fn)
			}
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name() < fns[j].Name() })
	if len(fns) == 0 {
		return errors.Errorf("no %s* functions found", CheckFuncPrefix)
	}

	failed := false
	for _, fn := range fns {
		ok, err := cmd.checkFunction(fn, *bound, strategy, *verbose)
		if err != nil {
			return errors.Wrapf(err, fn.Name())
		}
		if !ok {
			failed = true
		}
	}
	if failed {
		return errors.Errorf("one or more functions have a reachable panic")
	}
	return nil
}

// checkFunction runs the refinement loop over fn and reports the result.
func (cmd *CheckCommand) checkFunction(fn *ssa.Function, bound int, strategy bmc.MUCStrategy, verbose bool) (bool, error) {
	runID := uuid.New().String()
	log.Printf("run %s: checking %s (bound=%d)", runID, fn.Name(), bound)

	aux := z3.NewSolver()
	defer aux.Close()

	eng := bmc.NewEngine(bmc.EngineConfig{
		Executor:    ssaexec.New(fn, bound),
		MainSolver:  satsolver.NewSolver(),
		AuxSolver:   aux,
		AI:          &bmc.IntervalPathChecker{},
		MUCStrategy: strategy,
		Verbose:     verbose,
	})

	result, err := eng.Solve()
	if err != nil {
		return false, err
	}

	switch result {
	case bmc.Sat:
		fmt.Printf("%s: FAIL: panic reachable [%s]\n", fn.Name(), runID)
		for _, b := range eng.Trace() {
			fmt.Printf("  -> %s\n", b)
		}
		fmt.Printf("  %s\n", eng.Stats())
		if verbose {
			log.Printf("run %s: counterexample model:\n%s", runID, spew.Sdump(eng.CounterExample()))
		}
		return false, nil
	case bmc.Unsat:
		fmt.Printf("%s: OK (%s) [%s]\n", fn.Name(), eng.Stats(), runID)
		return true, nil
	default:
		fmt.Printf("%s: UNKNOWN (%s) [%s]\n", fn.Name(), eng.Stats(), runID)
		return true, nil
	}
}

func parseMUCStrategy(s string) (bmc.MUCStrategy, error) {
	switch s {
	case "assumptions":
		return bmc.MUCAssumptions, nil
	case "naive":
		return bmc.MUCNaive, nil
	case "binary-search":
		return bmc.MUCBinarySearch, nil
	default:
		return 0, errors.Errorf("unknown muc strategy: %s", s)
	}
}

func (cmd *CheckCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: pathbmc check [arguments] [package]

Arguments:

	-v
	    Enable verbose logging.
	-bound
	    Loop unwinding bound (default 4).
	-muc
	    Minimal-unsat-core strategy: assumptions, naive, binary-search.
`[1:])
}
