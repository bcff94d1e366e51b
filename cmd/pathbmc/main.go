package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "check":
		return NewCheckCommand().Run(ctx, args)
	case "gen":
		return NewGenerateCommand().Run(ctx, args)
	default:
		return errors.Errorf(`pathbmc %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
pathbmc is a bounded model checker for Go functions.

Usage:

	pathbmc <command> [arguments]

The commands are:

	check    bound-check functions for reachable panics
	gen      scaffold BmcCheck wrappers for a package
	help     this screen
`[1:])
}
