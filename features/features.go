// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package features describes the device capabilities a generated shader
// needs and checks them against what a device reports.
//
// The shapes mirror VkPhysicalDeviceFeatures, the 16-bit storage and
// Float16Int8 feature structs, VkPhysicalDeviceFloatControlsProperties and
// the shader float controls 2 feature.
package features

import (
	"sort"
	"strings"

	"github.com/gogpu/floatctl/fault"
	"github.com/gogpu/floatctl/fp"
	"github.com/gogpu/floatctl/spirv"
)

// Independence orders the float-controls independence properties from
// weakest to strongest. A device satisfies a requirement when its
// independence is at least as strong.
type Independence uint8

const (
	// IndependenceNone requires every width to share one behavior.
	IndependenceNone Independence = iota
	// Independence32BitOnly lets fp32 differ while fp16 and fp64 agree.
	Independence32BitOnly
	// IndependenceAll lets every width choose independently.
	IndependenceAll
)

func (i Independence) String() string {
	switch i {
	case IndependenceNone:
		return "NONE"
	case Independence32BitOnly:
		return "32_BIT_ONLY"
	default:
		return "ALL"
	}
}

// IndependenceFor returns the independence needed to give each width in
// byWidth its own behavior within one module.
func IndependenceFor[T comparable](byWidth map[fp.Type]T) Independence {
	v16, ok16 := byWidth[fp.FP16]
	v32, ok32 := byWidth[fp.FP32]
	v64, ok64 := byWidth[fp.FP64]
	switch {
	case ok16 && ok64 && v16 != v64:
		return IndependenceAll
	case ok32 && ((ok16 && v16 != v32) || (ok64 && v64 != v32)):
		return Independence32BitOnly
	}
	return IndependenceNone
}

// Widths is a set of float widths.
type Widths uint8

// WidthOf returns the set holding only t.
func WidthOf(t fp.Type) Widths { return 1 << t }

// Has reports whether t is in w.
func (w Widths) Has(t fp.Type) bool { return w&WidthOf(t) != 0 }

// Contains reports whether every width of o is in w.
func (w Widths) Contains(o Widths) bool { return w&o == o }

func (w Widths) String() string {
	var parts []string
	for _, t := range fp.Types {
		if w.Has(t) {
			parts = append(parts, t.String())
		}
	}
	return strings.Join(parts, "|")
}

// AllWidths holds every float width.
var AllWidths = WidthOf(fp.FP16) | WidthOf(fp.FP32) | WidthOf(fp.FP64)

// FloatControls mirrors VkPhysicalDeviceFloatControlsProperties.
type FloatControls struct {
	DenormBehaviorIndependence Independence
	RoundingModeIndependence   Independence
	SignedZeroInfNanPreserve   Widths
	DenormPreserve             Widths
	DenormFlushToZero          Widths
	RoundingModeRTE            Widths
	RoundingModeRTZ            Widths
}

// Features lists the boolean device features a case may need.
type Features struct {
	ShaderFloat16                      bool
	ShaderFloat64                      bool
	StorageBuffer16BitAccess           bool
	UniformAndStorageBuffer16BitAccess bool
	StorageInputOutput16               bool
	FragmentStoresAndAtomics           bool
	ShaderFloatControls2               bool
}

// Requirements is everything a case needs from the device.
type Requirements struct {
	SPIRVVersion  spirv.Version
	Extensions    []string
	Features      Features
	FloatControls FloatControls
}

// AddExtension records a device extension once, keeping the list sorted.
func (r *Requirements) AddExtension(name string) {
	i := sort.SearchStrings(r.Extensions, name)
	if i < len(r.Extensions) && r.Extensions[i] == name {
		return
	}
	r.Extensions = append(r.Extensions, "")
	copy(r.Extensions[i+1:], r.Extensions[i:])
	r.Extensions[i] = name
}

// Merge returns the union of r and o.
func (r Requirements) Merge(o Requirements) Requirements {
	out := r
	out.Extensions = append([]string(nil), r.Extensions...)
	for _, e := range o.Extensions {
		out.AddExtension(e)
	}
	out.SPIRVVersion = spirv.MaxVersion(r.SPIRVVersion, o.SPIRVVersion)

	f, g := &out.Features, o.Features
	f.ShaderFloat16 = f.ShaderFloat16 || g.ShaderFloat16
	f.ShaderFloat64 = f.ShaderFloat64 || g.ShaderFloat64
	f.StorageBuffer16BitAccess = f.StorageBuffer16BitAccess || g.StorageBuffer16BitAccess
	f.UniformAndStorageBuffer16BitAccess = f.UniformAndStorageBuffer16BitAccess || g.UniformAndStorageBuffer16BitAccess
	f.StorageInputOutput16 = f.StorageInputOutput16 || g.StorageInputOutput16
	f.FragmentStoresAndAtomics = f.FragmentStoresAndAtomics || g.FragmentStoresAndAtomics
	f.ShaderFloatControls2 = f.ShaderFloatControls2 || g.ShaderFloatControls2

	c, d := &out.FloatControls, o.FloatControls
	c.DenormBehaviorIndependence = max(c.DenormBehaviorIndependence, d.DenormBehaviorIndependence)
	c.RoundingModeIndependence = max(c.RoundingModeIndependence, d.RoundingModeIndependence)
	c.SignedZeroInfNanPreserve |= d.SignedZeroInfNanPreserve
	c.DenormPreserve |= d.DenormPreserve
	c.DenormFlushToZero |= d.DenormFlushToZero
	c.RoundingModeRTE |= d.RoundingModeRTE
	c.RoundingModeRTZ |= d.RoundingModeRTZ
	return out
}

// DeviceCaps is what a device reports.
type DeviceCaps struct {
	MaxSPIRVVersion spirv.Version
	Extensions      []string
	Features        Features
	FloatControls   FloatControls
}

// FullDevice returns capabilities that satisfy every requirement the
// generator can produce.
func FullDevice() DeviceCaps {
	return DeviceCaps{
		MaxSPIRVVersion: spirv.Version1_6,
		Extensions: []string{
			"VK_KHR_16bit_storage",
			"VK_KHR_shader_float16_int8",
			"VK_KHR_shader_float_controls",
			"VK_KHR_shader_float_controls2",
			"VK_KHR_spirv_1_4",
			"VK_KHR_storage_buffer_storage_class",
		},
		Features: Features{
			ShaderFloat16:                      true,
			ShaderFloat64:                      true,
			StorageBuffer16BitAccess:           true,
			UniformAndStorageBuffer16BitAccess: true,
			StorageInputOutput16:               true,
			FragmentStoresAndAtomics:           true,
			ShaderFloatControls2:               true,
		},
		FloatControls: FloatControls{
			DenormBehaviorIndependence: IndependenceAll,
			RoundingModeIndependence:   IndependenceAll,
			SignedZeroInfNanPreserve:   AllWidths,
			DenormPreserve:             AllWidths,
			DenormFlushToZero:          AllWidths,
			RoundingModeRTE:            AllWidths,
			RoundingModeRTZ:            AllWidths,
		},
	}
}

// Missing lists every requirement d does not satisfy, in a stable order.
func (r Requirements) Missing(d DeviceCaps) []string {
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}

	need(!d.MaxSPIRVVersion.Less(r.SPIRVVersion), "SPIR-V "+r.SPIRVVersion.String())
	have := make(map[string]bool, len(d.Extensions))
	for _, e := range d.Extensions {
		have[e] = true
	}
	for _, e := range r.Extensions {
		need(have[e], e)
	}

	f, g := r.Features, d.Features
	need(!f.ShaderFloat16 || g.ShaderFloat16, "shaderFloat16")
	need(!f.ShaderFloat64 || g.ShaderFloat64, "shaderFloat64")
	need(!f.StorageBuffer16BitAccess || g.StorageBuffer16BitAccess, "storageBuffer16BitAccess")
	need(!f.UniformAndStorageBuffer16BitAccess || g.UniformAndStorageBuffer16BitAccess, "uniformAndStorageBuffer16BitAccess")
	need(!f.StorageInputOutput16 || g.StorageInputOutput16, "storageInputOutput16")
	need(!f.FragmentStoresAndAtomics || g.FragmentStoresAndAtomics, "fragmentStoresAndAtomics")
	need(!f.ShaderFloatControls2 || g.ShaderFloatControls2, "shaderFloatControls2")

	c, e := r.FloatControls, d.FloatControls
	need(e.DenormBehaviorIndependence >= c.DenormBehaviorIndependence,
		"denormBehaviorIndependence "+c.DenormBehaviorIndependence.String())
	need(e.RoundingModeIndependence >= c.RoundingModeIndependence,
		"roundingModeIndependence "+c.RoundingModeIndependence.String())
	widths := []struct {
		name      string
		req, have Widths
	}{
		{"shaderSignedZeroInfNanPreserveFloat", c.SignedZeroInfNanPreserve, e.SignedZeroInfNanPreserve},
		{"shaderDenormPreserveFloat", c.DenormPreserve, e.DenormPreserve},
		{"shaderDenormFlushToZeroFloat", c.DenormFlushToZero, e.DenormFlushToZero},
		{"shaderRoundingModeRTEFloat", c.RoundingModeRTE, e.RoundingModeRTE},
		{"shaderRoundingModeRTZFloat", c.RoundingModeRTZ, e.RoundingModeRTZ},
	}
	for _, w := range widths {
		for _, t := range fp.Types {
			if w.req.Has(t) && !w.have.Has(t) {
				missing = append(missing, w.name+itoaWidth(t))
			}
		}
	}
	return missing
}

func itoaWidth(t fp.Type) string {
	return strings.TrimPrefix(t.String(), "fp")
}

// Check returns a NotSupported fault naming every missing capability, or
// nil when d satisfies r.
func (r Requirements) Check(d DeviceCaps) error {
	if missing := r.Missing(d); len(missing) > 0 {
		return fault.NotSupported("missing %s", strings.Join(missing, ", "))
	}
	return nil
}
