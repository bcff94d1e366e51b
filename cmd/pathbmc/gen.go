package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"go/format"
	"go/types"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// GenerateCommand scaffolds BmcCheck* wrapper stubs for a package's
// exported, all-scalar-signature functions, so a caller can hand the
// output straight to the "check" subcommand instead of hand-writing one
// wrapper per function.
type GenerateCommand struct{}

// NewGenerateCommand returns a new instance of GenerateCommand.
func NewGenerateCommand() *GenerateCommand {
	return &GenerateCommand{}
}

// Run executes the "gen" subcommand.
func (cmd *GenerateCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pathbmc-gen", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	out := fs.String("o", "", "output file (default: stdout)")
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

	initial, err := packages.Load(&packages.Config{Mode: packages.LoadAllSyntax, Tests: true}, fs.Args()...)
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

	var pkgName string
	var fns []*ssa.Function
	for _, pkg := range pkgs {
		if pkg == nil {
			continue
		}
		for _, m := range pkg.Members {
			if fn, ok := m.(*ssa.Function); ok && isCandidateFunc(fn) {
				fns = append(fns, fn)
				pkgName = pkg.Pkg.Name()
			}
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name() < fns[j].Name() })
	if len(fns) == 0 {
		return errors.Errorf("no exported scalar-signature functions found")
	}
	log.Printf("generating %d stub(s) from package %s", len(fns), pkgName)

	src, err := stubSource(pkgName, fns)
	if err != nil {
		return errors.WithStack(err)
	}

	if *out == "" {
		_, err := os.Stdout.Write(src)
		return errors.WithStack(err)
	}
	return errors.WithStack(ioutil.WriteFile(*out, src, 0o644))
}

// isCandidateFunc reports whether fn is a free (non-method), exported
// function whose parameters and results are all scalar integer or bool
// types -- exactly what this executor can lower precisely. Functions
// already named with CheckFuncPrefix are skipped so re-running gen is
// idempotent against its own output.
func isCandidateFunc(fn *ssa.Function) bool {
	name := fn.Name()
	if name == "" || !unicode.IsUpper(rune(name[0])) {
		return false
	}
	if strings.HasPrefix(name, CheckFuncPrefix) {
		return false
	}
	if fn.Signature.Recv() != nil || len(fn.Blocks) == 0 {
		return false
	}
	sig := fn.Signature
	for i := 0; i < sig.Params().Len(); i++ {
		if !isScalarType(sig.Params().At(i).Type()) {
			return false
		}
	}
	for i := 0; i < sig.Results().Len(); i++ {
		if !isScalarType(sig.Results().At(i).Type()) {
			return false
		}
	}
	return true
}

func isScalarType(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	if !ok {
		return false
	}
	switch basic.Kind() {
	case types.Bool,
		types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
		types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		return true
	default:
		return false
	}
}

// stubSource renders one BmcCheck wrapper per fn into gofmt'd source for
// package pkgName.
func stubSource(pkgName string, fns []*ssa.Function) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by pathbmc gen. DO NOT EDIT.\n\npackage %s\n\n", pkgName)

	for _, fn := range fns {
		sig := fn.Signature
		var params, args []string
		for i := 0; i < sig.Params().Len(); i++ {
			p := sig.Params().At(i)
			name := p.Name()
			if name == "" {
				name = fmt.Sprintf("a%d", i)
			}
			params = append(params, fmt.Sprintf("%s %s", name, p.Type()))
			args = append(args, name)
		}

		call := fmt.Sprintf("%s(%s)", fn.Name(), strings.Join(args, ", "))
		if n := sig.Results().Len(); n > 0 {
			call = strings.Repeat("_, ", n-1) + "_ = " + call
		}
		fmt.Fprintf(&buf, "func %s%s(%s) {\n\t%s\n}\n\n", CheckFuncPrefix, fn.Name(), strings.Join(params, ", "), call)
	}

	return format.Source(buf.Bytes())
}

func (cmd *GenerateCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: pathbmc gen [arguments] [package]

Gen scaffolds a BmcCheck wrapper for every exported, all-scalar-signature
function in package, so the result can be handed straight to "check".

Arguments:

	-o file
	    Write the generated source to file instead of stdout.
	-v
	    Enable verbose logging.
`[1:])
}
