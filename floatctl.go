// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package floatctl generates the float controls conformance suite.
//
// The suite checks how a Vulkan implementation honors the SPIR-V float
// controls execution modes: denormal preservation and flushing, signed
// zero/inf/NaN preservation and the RTE/RTZ rounding modes, plus the
// fast-math flags of SPV_KHR_float_controls2. Every case is a SPIR-V
// assembly module (or a vertex and fragment pair), the input and initial
// output buffers it runs with, the device requirements it needs and the
// checks that decide the outcome from the output buffer.
//
// Example usage:
//
//	suite, err := floatctl.Generate(floatctl.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := suite.Find("float_controls/compute/fp32/input_args/add_denorm_preserve")
//	// run c.Compute.Assembly on a device, then
//	results, err := suite.Verify(c, output)
//
// Generation is deterministic: the same options always produce the same
// modules and expectations.
package floatctl

import (
	"path"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/matrix"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/snippets"
	"github.com/gogpu/floatctl/specialize"
	"github.com/gogpu/floatctl/spirv"
	"github.com/gogpu/floatctl/values"
	"github.com/gogpu/floatctl/verify"
)

// Options configures suite generation.
type Options struct {
	// Variants selects the float controls flavors to generate.
	Variants []matrix.Variant

	// Types selects the float widths.
	Types []fp.Type

	// ArgSources selects input-buffer and in-shader arguments.
	ArgSources []specialize.ArgSource

	// Stages selects the stages running operations. StageVertex and
	// StageFragment produce the graphics groups.
	Stages []specialize.Stage

	// StorageModes selects how fp16 values travel through compute buffers.
	// StorageNo16Bit produces the fp16_without_16bit_storage group.
	StorageModes []snippets.StorageMode

	// Settings enables the independence_settings group.
	Settings bool

	// SPIRVVersion is the lowest SPIR-V version modules target (default: 1.0)
	SPIRVVersion spirv.Version
}

// DefaultOptions returns options generating the whole suite.
func DefaultOptions() Options {
	return Options{
		Variants:     []matrix.Variant{matrix.FloatControls, matrix.FloatControls2},
		Types:        append([]fp.Type(nil), fp.Types...),
		ArgSources:   []specialize.ArgSource{specialize.ArgsInput, specialize.ArgsGenerated},
		Stages:       []specialize.Stage{specialize.StageCompute, specialize.StageVertex, specialize.StageFragment},
		StorageModes: []snippets.StorageMode{snippets.StorageNative, snippets.StorageNo16Bit},
		Settings:     true,
		SPIRVVersion: spirv.Version1_0,
	}
}

// Case is one runnable test. Exactly one of Compute and Graphics is set.
type Case struct {
	// Path is the full case path, the group path followed by Name.
	Path     string
	Name     string
	Compute  *specialize.ComputeShaderSpec
	Graphics *specialize.InstanceContext
}

// Requirements returns what the case needs from the device.
func (c *Case) Requirements() features.Requirements {
	if c.Graphics != nil {
		return c.Graphics.Requirements
	}
	return c.Compute.Requirements
}

// Checks returns the checks deciding the outcome of the case.
func (c *Case) Checks() []verify.Check {
	if c.Graphics != nil {
		return c.Graphics.Checks
	}
	return c.Compute.Checks
}

// Input returns the input buffer image, nil when the arguments are
// generated in the shader.
func (c *Case) Input() []byte {
	if c.Graphics != nil {
		return c.Graphics.Input
	}
	return c.Compute.Input
}

// Output returns the initial output buffer image.
func (c *Case) Output() []byte {
	if c.Graphics != nil {
		return c.Graphics.Output
	}
	return c.Compute.Output
}

// Supported returns a NotSupported fault when d cannot run the case.
func (c *Case) Supported(d features.DeviceCaps) error {
	return c.Requirements().Check(d)
}

// Group is a leaf of the case tree.
type Group struct {
	Path  string
	Cases []*Case
}

// Suite is a generated case tree.
type Suite struct {
	Groups []*Group

	verifier *verify.Verifier
	index    map[string]*Case
}

// Find returns the case at path, or nil.
func (s *Suite) Find(path string) *Case {
	return s.index[path]
}

// Count returns the number of cases.
func (s *Suite) Count() int {
	return len(s.index)
}

// Paths returns every case path in generation order.
func (s *Suite) Paths() []string {
	out := make([]string, 0, len(s.index))
	for _, g := range s.Groups {
		for _, c := range g.Cases {
			out = append(out, c.Path)
		}
	}
	return out
}

// Verify checks the output buffer a run of c produced. It returns the
// result of every check and the first failure as a verification fault.
func (s *Suite) Verify(c *Case, output []byte) ([]verify.Result, error) {
	results, err := s.verifier.VerifyAll(c.Checks(), output)
	for _, r := range results {
		if r.OK {
			continue
		}
		slogger().Warn("floatctl: verification failed",
			"case", c.Path,
			"op", r.Check.Op.String(),
			"type", r.Check.Type.String(),
			"expected", r.Expected,
			"expected_value", r.ExpectedValue,
			"actual", r.Actual,
			"actual_value", r.ActualValue,
			"reason", r.Reason)
	}
	return results, err
}

// Generate builds the suite selected by opts.
func Generate(opts Options) (*Suite, error) {
	g := newGenerator(opts)
	slogger().Debug("floatctl: generating suite",
		"variants", len(opts.Variants), "types", len(opts.Types), "spirv", opts.SPIRVVersion.String())

	for _, v := range opts.Variants {
		var err error
		if v == matrix.FloatControls2 {
			err = g.floatControls2()
		} else {
			err = g.floatControls()
		}
		if err != nil {
			return nil, err
		}
	}

	slogger().Debug("floatctl: suite generated", "groups", len(g.suite.Groups), "cases", g.suite.Count())
	return g.suite, nil
}

// generator carries the catalogs shared by every group.
type generator struct {
	opts   Options
	ops    *ops.Catalog
	matrix *matrix.Builder
	spec   *specialize.Specializer
	suite  *Suite
}

func newGenerator(opts Options) *generator {
	vc := values.NewCatalogs()
	oc := ops.NewCatalog()
	suite := &Suite{
		verifier: verify.New(vc, oc),
		index:    make(map[string]*Case),
	}
	return &generator{
		opts:   opts,
		ops:    oc,
		matrix: matrix.NewBuilder(vc, oc),
		spec:   specialize.New(vc, snippets.New(), oc, specialize.Options{SPIRVVersion: opts.SPIRVVersion}),
		suite:  suite,
	}
}

// group starts the group at the path joined from elems.
func (g *generator) group(elems ...string) *Group {
	grp := &Group{Path: path.Join(elems...)}
	g.suite.Groups = append(g.suite.Groups, grp)
	return grp
}

// add appends a case to grp and indexes it by path.
func (g *generator) add(grp *Group, name string, compute *specialize.ComputeShaderSpec, graphics *specialize.InstanceContext) {
	c := &Case{
		Path:     grp.Path + "/" + name,
		Name:     name,
		Compute:  compute,
		Graphics: graphics,
	}
	grp.Cases = append(grp.Cases, c)
	g.suite.index[c.Path] = c
}

// decorated reports whether tc carries its rounding mode on the
// instruction, which only compute shaders with native storage express.
func (g *generator) decorated(tc matrix.OperationTestCase) bool {
	return g.ops.Get(tc.Op).Decorated
}

func (g *generator) floatControls() error {
	variant := matrix.FloatControls.String()
	if slices.Contains(g.opts.Stages, specialize.StageCompute) {
		for _, t := range g.opts.Types {
			for _, args := range g.opts.ArgSources {
				if slices.Contains(g.opts.StorageModes, snippets.StorageNative) {
					if err := g.compute(g.group(variant, "compute", t.String(), args.String()),
						g.matrix.Build(t, args == specialize.ArgsInput), t, args, snippets.StorageNative); err != nil {
						return err
					}
				}
				if t == fp.FP16 && slices.Contains(g.opts.StorageModes, snippets.StorageNo16Bit) {
					if err := g.compute(g.group(variant, "compute", "fp16_without_16bit_storage", args.String()),
						g.matrix.Build(t, args == specialize.ArgsInput), t, args, snippets.StorageNo16Bit); err != nil {
						return err
					}
				}
			}
		}
		if g.opts.Settings {
			if err := g.settings(g.group(variant, "compute", "independence_settings")); err != nil {
				return err
			}
		}
	}

	var stages []specialize.Stage
	for _, s := range []specialize.Stage{specialize.StageVertex, specialize.StageFragment} {
		if slices.Contains(g.opts.Stages, s) {
			stages = append(stages, s)
		}
	}
	if len(stages) == 0 {
		return nil
	}
	for _, t := range g.opts.Types {
		for _, args := range g.opts.ArgSources {
			if err := g.graphics(g.group(variant, "graphics", t.String(), args.String()),
				g.matrix.Build(t, args == specialize.ArgsInput), t, args, stages); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) floatControls2() error {
	if !slices.Contains(g.opts.Stages, specialize.StageCompute) || !slices.Contains(g.opts.StorageModes, snippets.StorageNative) {
		slogger().Debug("floatctl: float_controls2 needs native compute, skipped")
		return nil
	}
	variant := matrix.FloatControls2.String()
	for _, t := range g.opts.Types {
		for _, args := range g.opts.ArgSources {
			if err := g.compute(g.group(variant, "compute", t.String(), args.String()),
				g.matrix.BuildFloatControls2(t, args == specialize.ArgsInput), t, args, snippets.StorageNative); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) compute(grp *Group, cases []matrix.OperationTestCase, t fp.Type, args specialize.ArgSource, storage snippets.StorageMode) error {
	for _, tc := range cases {
		if storage != snippets.StorageNative && g.decorated(tc) {
			slogger().Debug("floatctl: skipped", "group", grp.Path, "case", tc.Name(), "reason", "decorated conversion needs 16-bit storage")
			continue
		}
		spec, err := g.spec.Compute(tc, t, args, storage)
		if err != nil {
			return errors.Wrap(err, grp.Path)
		}
		g.add(grp, spec.Name, spec, nil)
	}
	slogger().Debug("floatctl: group", "path", grp.Path, "cases", len(grp.Cases))
	return nil
}

func (g *generator) graphics(grp *Group, cases []matrix.OperationTestCase, t fp.Type, args specialize.ArgSource, stages []specialize.Stage) error {
	for _, tc := range cases {
		if g.decorated(tc) {
			slogger().Debug("floatctl: skipped", "group", grp.Path, "case", tc.Name(), "reason", "decorated conversion is compute only")
			continue
		}
		for _, stage := range stages {
			ic, err := g.spec.Graphics(tc, t, args, stage)
			if err != nil {
				return errors.Wrap(err, grp.Path)
			}
			g.add(grp, ic.Name, nil, ic)
		}
	}
	slogger().Debug("floatctl: group", "path", grp.Path, "cases", len(grp.Cases))
	return nil
}

// settings adds the independence cases whose widths are all selected.
func (g *generator) settings(grp *Group) error {
	for _, sc := range g.matrix.SettingsCases() {
		if !g.selected(sc) {
			slogger().Debug("floatctl: skipped", "group", grp.Path, "case", sc.Name, "reason", "width not selected")
			continue
		}
		spec, err := g.spec.Settings(sc)
		if err != nil {
			return errors.Wrap(err, grp.Path)
		}
		g.add(grp, spec.Name, spec, nil)
	}
	slogger().Debug("floatctl: group", "path", grp.Path, "cases", len(grp.Cases))
	return nil
}

func (g *generator) selected(sc matrix.SettingsCase) bool {
	for _, w := range sc.Widths {
		if !slices.Contains(g.opts.Types, w.Type) {
			return false
		}
	}
	return true
}

// SplitPath splits a case path into its group path and case name.
func SplitPath(p string) (group, name string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}
