// Copyright 2024 The letin Authors
// This file is part of letin.

// Command letinvm runs a linked letin module image to completion.
//
// Usage:
//
//	letinvm [flags] <module.lmod> [args...]
//
// Flags:
//
//	-config <path>   TOML configuration file (default: built-in defaults)
//	-io              Use the two-argument entry signature (appends a unique IO token)
//	-version         Print version and exit
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/letin-run/letin"
	"github.com/letin-run/letin/internal/config"
	"github.com/letin-run/letin/internal/errs"
	"github.com/letin-run/letin/internal/gc"
	"github.com/letin-run/letin/internal/loader"
	"github.com/letin-run/letin/internal/value"
	"github.com/letin-run/letin/internal/xlog"
)

const version = "0.1.0"

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		withIO     = flag.Bool("io", false, "use the two-argument IO entry signature")
		ver        = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *ver {
		fmt.Printf("letinvm %s\n", version)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: letinvm [flags] <module.lmod> [args...]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "letinvm: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "letinvm: %v\n", err)
		os.Exit(1)
	}

	mod, lerr := loader.Parse(bytes.NewReader(raw))
	if lerr != nil {
		fmt.Fprintf(os.Stderr, "letinvm: parse: %v\n", lerr)
		os.Exit(1)
	}

	collector := gc.New(nil)
	link := loader.Link(collector, []*loader.Module{mod}, nil)
	if !link.OK {
		for _, me := range link.Errors {
			for _, e := range me.Errors {
				xlog.Error("letinvm: load error", "module", me.Index, "err", e)
			}
		}
		os.Exit(1)
	}

	vm, rerr := letin.New(link, collector, nil, cfg)
	if rerr != nil {
		fmt.Fprintf(os.Stderr, "letinvm: %v\n", rerr)
		os.Exit(1)
	}

	args := make([]value.Value, 0, flag.NArg()-1)
	for _, a := range flag.Args()[1:] {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "letinvm: argument %q is not an int: %v\n", a, err)
			os.Exit(1)
		}
		args = append(args, value.Int(n))
	}

	exitCode := 0
	run := func(result value.Value, rerr *errs.RuntimeError) {
		if rerr != nil {
			fmt.Fprintf(os.Stderr, "letinvm: %v\n", rerr)
			exitCode = 1
			return
		}
		fmt.Println(result.I)
	}
	if *withIO {
		vm.StartWithIO(cfg.StackSize, args, run)
	} else {
		vm.Start(cfg.StackSize, args, run)
	}
	os.Exit(exitCode)
}
