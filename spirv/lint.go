// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"fmt"
	"sort"
	"strings"
)

// Issue is a problem found by Lint.
type Issue struct {
	Line int
	Msg  string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Msg)
}

// LintError lists every issue found in a module.
type LintError struct {
	Issues []Issue
}

func (e *LintError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return "spirv: " + strings.Join(msgs, "; ")
}

// Lint performs structural checks on SPIR-V assembly text: every opcode and
// GLSL.std.450 instruction is known, every id is defined exactly once and
// every used id is defined, the preamble precedes the memory model, and
// functions are balanced. It returns nil or a *LintError.
//
// Lint is not a validator. It catches the mistakes template composition
// can make, not type errors.
func Lint(text string) error {
	var issues []Issue
	report := func(line int, format string, args ...any) {
		issues = append(issues, Issue{Line: line, Msg: fmt.Sprintf(format, args...)})
	}

	defined := make(map[string]int)
	used := make(map[string]int)
	memoryModels := 0
	inFunction := false

	for n, raw := range strings.Split(text, "\n") {
		line := n + 1
		toks, err := tokenize(raw)
		if err != nil {
			report(line, "%v", err)
			continue
		}
		if len(toks) == 0 {
			continue
		}

		var result string
		if len(toks) >= 3 && toks[1] == "=" {
			result, toks = toks[0], toks[2:]
			if !strings.HasPrefix(result, "%") {
				report(line, "result %q is not an id", result)
			}
		}
		opName, operands := toks[0], toks[1:]
		if _, ok := LookupOpCode(opName); !ok {
			report(line, "unknown opcode %s", opName)
			continue
		}

		if result != "" {
			if first, dup := defined[result]; dup {
				report(line, "%s already defined on line %d", result, first)
			} else {
				defined[result] = line
			}
		}
		for _, tok := range operands {
			if strings.HasPrefix(tok, "%") {
				if _, seen := used[tok]; !seen {
					used[tok] = line
				}
			}
		}

		switch opName {
		case "OpCapability", "OpExtension", "OpExtInstImport":
			if memoryModels > 0 {
				report(line, "%s after OpMemoryModel", opName)
			}
		case "OpMemoryModel":
			memoryModels++
		case "OpExtInst":
			if len(operands) < 3 {
				report(line, "OpExtInst needs a type, a set and an instruction")
			} else if _, known := GLSLInstruction(operands[2]); !known {
				report(line, "unknown GLSL.std.450 instruction %s", operands[2])
			}
		case "OpFunction":
			if inFunction {
				report(line, "nested OpFunction")
			}
			inFunction = true
		case "OpFunctionEnd":
			if !inFunction {
				report(line, "OpFunctionEnd outside a function")
			}
			inFunction = false
		}
	}

	switch {
	case memoryModels == 0:
		report(0, "missing OpMemoryModel")
	case memoryModels > 1:
		report(0, "%d OpMemoryModel instructions", memoryModels)
	}
	if inFunction {
		report(0, "unterminated function")
	}

	var undefined []string
	for id := range used {
		if _, ok := defined[id]; !ok {
			undefined = append(undefined, id)
		}
	}
	sort.Slice(undefined, func(i, j int) bool {
		a, b := undefined[i], undefined[j]
		if used[a] != used[b] {
			return used[a] < used[b]
		}
		return a < b
	})
	for _, id := range undefined {
		report(used[id], "%s used but never defined", id)
	}

	if len(issues) == 0 {
		return nil
	}
	return &LintError{Issues: issues}
}

// tokenize splits an assembly line into tokens. Quoted strings are kept as
// one token and ';' starts a comment.
func tokenize(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			return toks, nil
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, line[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' && line[j] != '\r' {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks, nil
}
