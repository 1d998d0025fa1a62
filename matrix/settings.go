// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package matrix

import (
	"sort"
	"strings"

	"github.com/gogpu/floatctl/features"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/ops"
	"github.com/gogpu/floatctl/values"
)

// SettingsWidth is the part of a settings case computed in one width.
type SettingsWidth struct {
	Type     fp.Type
	Behavior Behavior
	Op       ops.ID
	Arg1     values.ID
	Arg2     values.ID
	Expected values.ID
}

// SettingsCase runs one operation in several widths within a single
// shader, each width under its own float controls.
type SettingsCase struct {
	Name string
	// Widths is ordered from widest to narrowest, the buffer packing
	// order.
	Widths []SettingsWidth

	DenormIndependence   features.Independence
	RoundingIndependence features.Independence
}

// Has reports whether the case computes in t.
func (c SettingsCase) Has(t fp.Type) bool {
	for _, w := range c.Widths {
		if w.Type == t {
			return true
		}
	}
	return false
}

var settingsWidthSets = [][]fp.Type{
	{fp.FP16, fp.FP32},
	{fp.FP32, fp.FP64},
	{fp.FP16, fp.FP64},
	{fp.FP16, fp.FP32, fp.FP64},
}

// SettingsCases returns the independence cases: every assignment of
// distinct denormal modes, then of distinct rounding modes, over every
// set of two or three widths. Uniform assignments need no independence
// and are covered by the single-width cases.
func (b *Builder) SettingsCases() []SettingsCase {
	var out []SettingsCase
	kinds := []struct {
		name   string
		modes  [2]Behavior
		labels [2]string
		width  func(t fp.Type, m Behavior) SettingsWidth
	}{
		{
			"denorm",
			[2]Behavior{DenormPreserve, DenormFlushToZero},
			[2]string{"denorm_preserve", "denorm_flush"},
			func(t fp.Type, m Behavior) SettingsWidth {
				want := values.DenormTimesTwo
				if m == DenormFlushToZero {
					want = values.Zero
				}
				return SettingsWidth{Type: t, Behavior: m, Op: ops.Add, Arg1: values.Denorm, Arg2: values.Denorm, Expected: want}
			},
		},
		{
			"rounding",
			[2]Behavior{RTE, RTZ},
			[2]string{"rte", "rtz"},
			func(t fp.Type, m Behavior) SettingsWidth {
				want := values.AddRteResult
				if m == RTZ {
					want = values.AddRtzResult
				}
				return SettingsWidth{Type: t, Behavior: m, Op: ops.Add, Arg1: values.AddArgA, Arg2: values.AddArgB, Expected: want}
			},
		},
	}
	for _, k := range kinds {
		for _, set := range settingsWidthSets {
			for mask := 0; mask < 1<<len(set); mask++ {
				if mask == 0 || mask == 1<<len(set)-1 {
					continue
				}
				byWidth := make(map[fp.Type]Behavior, len(set))
				var name []string
				var widths []SettingsWidth
				for i, t := range set {
					sel := mask >> i & 1
					byWidth[t] = k.modes[sel]
					name = append(name, t.String()+"_"+k.labels[sel])
					widths = append(widths, k.width(t, k.modes[sel]))
				}
				sort.Slice(widths, func(i, j int) bool { return widths[i].Type > widths[j].Type })
				sc := SettingsCase{Name: strings.Join(name, "_"), Widths: widths}
				if k.name == "denorm" {
					sc.DenormIndependence = features.IndependenceFor(byWidth)
				} else {
					sc.RoundingIndependence = features.IndependenceFor(byWidth)
				}
				out = append(out, sc)
			}
		}
	}
	return out
}
