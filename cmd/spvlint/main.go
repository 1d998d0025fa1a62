// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// spvlint - SPIR-V assembly linter
// Checks .spvasm files, or every .spvasm file below a directory, and
// optionally prints the capabilities, extensions and execution modes a
// module declares.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/spirv"
)

func main() {
	summary := flag.Bool("summary", false, "print the declarations of every module")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spvlint [-summary] <file.spvasm|dir>...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	failed, err := lintPaths(flag.Args(), *summary, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(2)
	}
}

// lintPaths lints every module named by paths and returns how many failed.
func lintPaths(paths []string, summary bool, w io.Writer) (int, error) {
	var files []string
	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (path == p || strings.HasSuffix(path, ".spvasm")) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return 0, errors.Wrap(err, p)
		}
	}
	sort.Strings(files)

	failed := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return failed, err
		}
		text := string(data)
		if err := spirv.Lint(text); err != nil {
			failed++
			var le *spirv.LintError
			if errors.As(err, &le) {
				for _, is := range le.Issues {
					fmt.Fprintf(w, "%s:%d: %s\n", f, is.Line, is.Msg)
				}
			} else {
				fmt.Fprintf(w, "%s: %v\n", f, err)
			}
			continue
		}
		if summary {
			printSummary(w, f, text)
		}
	}
	fmt.Fprintf(w, "; %d modules, %d failed\n", len(files), failed)
	return failed, nil
}

// declarations lists the module-level declarations of a module.
type declarations struct {
	capabilities []string
	extensions   []string
	modes        []string
	opcodes      map[string]int
}

func scan(text string) declarations {
	d := declarations{opcodes: make(map[string]int)}
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 3 && fields[1] == "=" {
			fields = fields[2:]
		}
		if len(fields) == 0 || strings.HasPrefix(fields[0], ";") {
			continue
		}
		d.opcodes[fields[0]]++
		switch fields[0] {
		case "OpCapability":
			d.capabilities = append(d.capabilities, fields[1])
		case "OpExtension":
			d.extensions = append(d.extensions, strings.Trim(fields[1], `"`))
		case "OpExecutionMode", "OpExecutionModeId":
			if len(fields) >= 3 {
				d.modes = append(d.modes, strings.Join(fields[2:], " "))
			}
		}
	}
	return d
}

func printSummary(w io.Writer, file, text string) {
	d := scan(text)
	fmt.Fprintf(w, "; %s\n", file)
	fmt.Fprintf(w, ";   Capabilities: %s\n", strings.Join(d.capabilities, " "))
	if len(d.extensions) > 0 {
		fmt.Fprintf(w, ";   Extensions: %s\n", strings.Join(d.extensions, " "))
	}
	for _, m := range d.modes {
		fmt.Fprintf(w, ";   ExecutionMode: %s\n", m)
	}

	names := make([]string, 0, len(d.opcodes))
	for op := range d.opcodes {
		names = append(names, op)
	}
	sort.Strings(names)
	counts := make([]string, len(names))
	for i, op := range names {
		counts[i] = fmt.Sprintf("%s=%d", op, d.opcodes[op])
	}
	fmt.Fprintf(w, ";   Opcodes: %s\n", strings.Join(counts, " "))
}
