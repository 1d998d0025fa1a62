// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command fcgen generates the float controls conformance suite.
//
// Usage:
//
//	fcgen gen [options] -o DIR            # Write every module and a manifest per group
//	fcgen list [options]                  # Print case paths
//	fcgen verify [options] -case PATH -out FILE
//
// Examples:
//
//	fcgen gen -o suite
//	fcgen list -types fp16 -stages vert,frag
//	fcgen verify -case float_controls/compute/fp32/input_args/add_denorm_op_denorm_flush -out out.bin
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/floatctl"
	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/specialize"
	"github.com/gogpu/floatctl/spirv"
)

const fcgenVersion = "0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if fault.IsVerification(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one subcommand.
func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		usage(stderr)
		return errors.New("no command specified")
	}
	switch args[0] {
	case "gen":
		return runGen(args[1:], stdout, stderr)
	case "list":
		return runList(args[1:], stdout, stderr)
	case "verify":
		return runVerify(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "fcgen version %s\n", fcgenVersion)
		return nil
	case "-h", "-help", "help":
		usage(stdout)
		return nil
	}
	usage(stderr)
	return errors.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: fcgen <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  gen      write the suite to a directory\n")
	fmt.Fprintf(w, "  list     print case paths\n")
	fmt.Fprintf(w, "  verify   check an output buffer dump\n")
	fmt.Fprintf(w, "  version  print version\n")
	fmt.Fprintf(w, "\nRun 'fcgen <command> -h' for the options of a command.\n")
}

// suiteFlags are the generation options shared by every command.
type suiteFlags struct {
	types    *string
	variants *string
	args     *string
	stages   *string
	storage  *string
	settings *bool
	spirv    *string
	verbose  *bool
}

func addSuiteFlags(fs *flag.FlagSet) *suiteFlags {
	return &suiteFlags{
		types:    fs.String("types", "fp16,fp32,fp64", "float widths"),
		variants: fs.String("variants", "float_controls,float_controls2", "float controls variants"),
		args:     fs.String("args", "input_args,generated_args", "argument sources"),
		stages:   fs.String("stages", "comp,vert,frag", "stages running the operations"),
		storage:  fs.String("storage", "native,no_16bit_storage", "fp16 storage modes"),
		settings: fs.Bool("settings", true, "generate the independence settings group"),
		spirv:    fs.String("spirv", "1.0", "lowest SPIR-V version"),
		verbose:  fs.Bool("v", false, "debug logging"),
	}
}

// generate installs the logger and builds the suite the flags select.
func (f *suiteFlags) generate(stderr io.Writer) (*floatctl.Suite, *slog.Logger, error) {
	level := slog.LevelInfo
	if *f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	floatctl.SetLogger(logger)

	opts, err := f.options()
	if err != nil {
		return nil, nil, err
	}
	suite, err := floatctl.Generate(opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "generate")
	}
	return suite, logger, nil
}

func (f *suiteFlags) options() (floatctl.Options, error) {
	opts := floatctl.Options{Settings: *f.settings}
	var err error
	if opts.Types, err = parseList(*f.types, fp.Types); err != nil {
		return opts, errors.Wrap(err, "-types")
	}
	if opts.Variants, err = parseList(*f.variants, []matrix.Variant{matrix.FloatControls, matrix.FloatControls2}); err != nil {
		return opts, errors.Wrap(err, "-variants")
	}
	if opts.ArgSources, err = parseList(*f.args, []specialize.ArgSource{specialize.ArgsInput, specialize.ArgsGenerated}); err != nil {
		return opts, errors.Wrap(err, "-args")
	}
	if opts.Stages, err = parseList(*f.stages, []specialize.Stage{specialize.StageCompute, specialize.StageVertex, specialize.StageFragment}); err != nil {
		return opts, errors.Wrap(err, "-stages")
	}
	if opts.StorageModes, err = parseList(*f.storage, []snippets.StorageMode{snippets.StorageNative, snippets.StorageNo16Bit}); err != nil {
		return opts, errors.Wrap(err, "-storage")
	}
	if opts.SPIRVVersion, err = spirv.ParseVersion(*f.spirv); err != nil {
		return opts, errors.Wrap(err, "-spirv")
	}
	return opts, nil
}

// parseList maps a comma separated list onto the choices whose String
// matches each element.
func parseList[T fmt.Stringer](s string, choices []T) ([]T, error) {
	var out []T
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, c := range choices {
			if c.String() == name {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			names := make([]string, len(choices))
			for i, c := range choices {
				names[i] = c.String()
			}
			return nil, errors.Errorf("unknown value %q (want %s)", name, strings.Join(names, ", "))
		}
	}
	return out, nil
}

func runGen(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sf := addSuiteFlags(fs)
	out := fs.String("o", "", "output directory")
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "groups written concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("gen: no output directory specified")
	}

	suite, logger, err := sf.generate(stderr)
	if err != nil {
		return err
	}
	if err := writeSuite(suite, *out, *jobs, logger); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Successfully wrote %d cases in %d groups to %s\n", suite.Count(), len(suite.Groups), *out)
	return nil
}

func runList(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sf := addSuiteFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	suite, _, err := sf.generate(stderr)
	if err != nil {
		return err
	}
	for _, p := range suite.Paths() {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

func runVerify(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sf := addSuiteFlags(fs)
	path := fs.String("case", "", "case path")
	dump := fs.String("out", "", "raw output buffer dump")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *dump == "" {
		return errors.New("verify: -case and -out are required")
	}

	output, err := os.ReadFile(*dump)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	suite, _, err := sf.generate(stderr)
	if err != nil {
		return err
	}
	c := suite.Find(*path)
	if c == nil {
		return errors.Errorf("verify: no case %s", *path)
	}

	results, err := suite.Verify(c, output)
	for _, r := range results {
		status := "ok"
		if !r.OK {
			status = "FAIL"
		}
		fmt.Fprintf(stdout, "%-4s %s %s@%d: expected %s, got %s\n",
			status, r.Check.Op, r.Check.Type, r.Check.Offset, r.Expected, r.Actual)
	}
	return err
}
