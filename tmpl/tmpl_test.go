// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package tmpl

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		p    Params
		want string
	}{
		{"no placeholders", "OpReturn", nil, "OpReturn"},
		{"one", "%type_${float}", Params{"float": "f32"}, "%type_f32"},
		{"repeated", "%${r} = OpFAdd %type_${f} %c_${f}_1 %c_${f}_1", Params{"r": "x", "f": "f16"},
			"%x = OpFAdd %type_f16 %c_f16_1 %c_f16_1"},
		{"adjacent", "${a}${b}", Params{"a": "1", "b": "2"}, "12"},
		{"extra params ignored", "${a}", Params{"a": "x", "b": "y"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MustParse(tt.src).Execute(tt.p)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, src := range []string{
		"$float",
		"${float",
		"${}",
		"${1x}",
		"${a-b}",
		"cost: $5",
	} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) succeeded", src)
		}
	}
}

func TestExecuteMissing(t *testing.T) {
	_, err := MustParse("${a} ${b} ${a}").Execute(Params{"c": "1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "a, b") {
		t.Errorf("error %q does not list missing names", err)
	}
}

func TestPlaceholders(t *testing.T) {
	got := MustParse("${z} ${a} ${z} ${m}").Placeholders()
	if diff := cmp.Diff([]string{"a", "m", "z"}, got); diff != "" {
		t.Errorf("Placeholders mismatch (-want +got):\n%s", diff)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic")
		}
	}()
	MustParse("${")
}

func TestParamsWith(t *testing.T) {
	base := Params{"a": "1"}
	ext := base.With("b", "2")
	if _, ok := base["b"]; ok {
		t.Error("With modified the receiver")
	}
	if ext["a"] != "1" || ext["b"] != "2" {
		t.Errorf("With = %v", ext)
	}
}
