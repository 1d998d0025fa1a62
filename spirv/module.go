// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Module builds a textual SPIR-V module. Sections are kept apart and
// emitted in the order the SPIR-V logical layout requires, regardless of
// the order in which fragments are added.
//
// Fragments contributed by independent snippets often declare the same
// type or constant. Type and global declarations are therefore
// de-duplicated by result id; a second declaration of an id with a
// different definition is recorded as an error and reported by Build.
type Module struct {
	version Version

	capabilities   orderedSet
	extensions     orderedSet
	extInstImports []string
	memoryModel    string
	entryPoints    []entryPoint
	executionModes orderedSet
	names          orderedSet
	annotations    orderedSet
	types          definitions
	globals        definitions
	functions      []string

	err error
}

type entryPoint struct {
	model ExecutionModel
	fn    string
	name  string
	iface []string
}

// NewModule creates an empty module targeting version.
func NewModule(version Version) *Module {
	return &Module{
		version: version,
		types:   newDefinitions(),
		globals: newDefinitions(),
	}
}

// Version returns the target version.
func (m *Module) Version() Version { return m.version }

// AddCapability declares a capability once.
func (m *Module) AddCapability(c Capability) {
	m.capabilities.add("OpCapability " + c.String())
}

// AddExtension declares an extension once.
func (m *Module) AddExtension(name string) {
	m.extensions.add(fmt.Sprintf("OpExtension %q", name))
}

// AddExtInstImport imports an extended instruction set as %id.
func (m *Module) AddExtInstImport(id, name string) {
	line := fmt.Sprintf("%%%s = OpExtInstImport %q", id, name)
	for _, l := range m.extInstImports {
		if l == line {
			return
		}
	}
	m.extInstImports = append(m.extInstImports, line)
}

// SetMemoryModel sets the memory model.
func (m *Module) SetMemoryModel(addressing, memory string) {
	m.memoryModel = "OpMemoryModel " + addressing + " " + memory
}

// AddEntryPoint adds an entry point. The interface always includes the
// Input and Output globals; from SPIR-V 1.4 on it lists every global
// variable.
func (m *Module) AddEntryPoint(model ExecutionModel, fn, name string, iface ...string) {
	m.entryPoints = append(m.entryPoints, entryPoint{model: model, fn: fn, name: name, iface: iface})
}

// AddExecutionMode adds OpExecutionMode for fn.
func (m *Module) AddExecutionMode(fn string, mode ExecutionMode, operands ...string) {
	m.executionModes.add(joinFields("OpExecutionMode", "%"+fn, mode.String(), operands))
}

// AddExecutionModeID adds OpExecutionModeId for fn. Its operands are ids.
func (m *Module) AddExecutionModeID(fn string, mode ExecutionMode, operands ...string) {
	m.executionModes.add(joinFields("OpExecutionModeId", "%"+fn, mode.String(), operands))
}

// AddName adds a debug name.
func (m *Module) AddName(id, name string) {
	m.names.add(fmt.Sprintf("OpName %%%s %q", id, name))
}

// AddDecoration decorates %id.
func (m *Module) AddDecoration(id string, d Decoration, operands ...string) {
	m.annotations.add(joinFields("OpDecorate", "%"+id, d.String(), operands))
}

// AddAnnotations adds a block of decoration instructions.
func (m *Module) AddAnnotations(text string) {
	for _, line := range lines(text) {
		m.annotations.add(line)
	}
}

// AddTypes adds a block of type and constant declarations.
func (m *Module) AddTypes(text string) {
	m.setErr(m.types.add(text))
}

// AddGlobals adds a block of global variable declarations.
func (m *Module) AddGlobals(text string) {
	m.setErr(m.globals.add(text))
}

// AddFunction appends a function body verbatim.
func (m *Module) AddFunction(text string) {
	if ls := lines(text); len(ls) > 0 {
		m.functions = append(m.functions, ls...)
	}
}

// Defines reports whether a type, constant or global declares %id.
func (m *Module) Defines(id string) bool {
	_, t := m.types.defs["%"+id]
	_, g := m.globals.defs["%"+id]
	return t || g
}

func (m *Module) setErr(err error) {
	if m.err == nil && err != nil {
		m.err = err
	}
}

// Build assembles the module text.
func (m *Module) Build() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.memoryModel == "" {
		return "", errors.New("spirv: memory model not set")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "; SPIR-V\n; Version: %s\n", m.version)
	section := func(ls []string) {
		for _, l := range ls {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	section(m.capabilities.items)
	section(m.extensions.items)
	section(m.extInstImports)
	section([]string{m.memoryModel})
	for _, ep := range m.entryPoints {
		section([]string{m.entryPointLine(ep)})
	}
	section(m.executionModes.items)
	section(m.names.items)
	section(m.annotations.items)
	section(m.types.lines)
	section(m.globals.lines)
	section(m.functions)
	return b.String(), nil
}

func (m *Module) entryPointLine(ep entryPoint) string {
	var iface orderedSet
	for _, id := range ep.iface {
		iface.add("%" + strings.TrimPrefix(id, "%"))
	}
	for _, id := range m.globals.order {
		class := m.globals.classes[id]
		if class == StorageClassInput || class == StorageClassOutput || m.version.AtLeast(Version1_4) {
			iface.add(id)
		}
	}
	head := fmt.Sprintf("OpEntryPoint %s %%%s %q", ep.model, ep.fn, ep.name)
	return joinFields(head, "", "", iface.items)
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (s *orderedSet) add(item string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[item] {
		return
	}
	s.seen[item] = true
	s.items = append(s.items, item)
}

// definitions is a section whose instructions all produce a result id.
type definitions struct {
	lines   []string
	order   []string
	defs    map[string]string
	classes map[string]StorageClass
}

func newDefinitions() definitions {
	return definitions{defs: make(map[string]string), classes: make(map[string]StorageClass)}
}

func (d *definitions) add(text string) error {
	for _, line := range lines(text) {
		if strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "=" || !strings.HasPrefix(fields[0], "%") {
			return errors.Errorf("spirv: declaration without result id: %q", line)
		}
		id := fields[0]
		norm := strings.Join(fields[2:], " ")
		if prev, ok := d.defs[id]; ok {
			if prev != norm {
				return errors.Errorf("spirv: conflicting definitions of %s: %q and %q", id, prev, norm)
			}
			continue
		}
		d.defs[id] = norm
		d.order = append(d.order, id)
		d.lines = append(d.lines, strings.Join(fields, " "))
		if fields[2] == "OpVariable" && len(fields) >= 5 {
			if class, ok := parseStorageClass(fields[4]); ok {
				d.classes[id] = class
			}
		}
	}
	return nil
}

func lines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func joinFields(op, a, b string, rest []string) string {
	parts := []string{op}
	for _, s := range append([]string{a, b}, rest...) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
