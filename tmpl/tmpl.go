// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package tmpl implements the named-placeholder templates used to render
// SPIR-V assembly fragments.
//
// A placeholder is written ${name}, where name is an identifier. Any other
// use of '$' is rejected by Parse, and Execute fails when a placeholder has
// no value, so a malformed or unmatched token never reaches the assembler.
package tmpl

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/fault"
)

// Params maps placeholder names to their replacement text.
type Params map[string]string

// With returns a copy of p extended with key=value.
func (p Params) With(key, value string) Params {
	q := make(Params, len(p)+1)
	for k, v := range p {
		q[k] = v
	}
	q[key] = value
	return q
}

type part struct {
	text  string
	param bool
}

// Template is a parsed fragment. It is immutable and safe for concurrent
// use.
type Template struct {
	src   string
	parts []part
}

// Parse parses src.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	rest := src
	for {
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			if rest != "" {
				t.parts = append(t.parts, part{text: rest})
			}
			return t, nil
		}
		if i > 0 {
			t.parts = append(t.parts, part{text: rest[:i]})
		}
		rest = rest[i:]
		if !strings.HasPrefix(rest, "${") {
			return nil, errors.Errorf("tmpl: stray '$' at offset %d", len(src)-len(rest))
		}
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, errors.Errorf("tmpl: unterminated placeholder at offset %d", len(src)-len(rest))
		}
		name := rest[2:end]
		if !isIdent(name) {
			return nil, errors.Errorf("tmpl: invalid placeholder name %q", name)
		}
		t.parts = append(t.parts, part{text: name, param: true})
		rest = rest[end+1:]
	}
}

// MustParse is like Parse but panics with an internal fault on error.
// It is intended for catalog construction from literal fragments.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(fault.Internal("%v", err))
	}
	return t
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Execute renders t. Every placeholder must have a value in p; extra
// entries in p are ignored.
func (t *Template) Execute(p Params) (string, error) {
	var b strings.Builder
	b.Grow(len(t.src))
	var missing []string
	for _, pt := range t.parts {
		if !pt.param {
			b.WriteString(pt.text)
			continue
		}
		v, ok := p[pt.text]
		if !ok {
			missing = append(missing, pt.text)
			continue
		}
		b.WriteString(v)
	}
	if len(missing) > 0 {
		return "", errors.Errorf("tmpl: missing parameters %s", strings.Join(dedup(missing), ", "))
	}
	return b.String(), nil
}

// MustExecute is like Execute but panics with an internal fault on error.
func (t *Template) MustExecute(p Params) string {
	s, err := t.Execute(p)
	if err != nil {
		panic(fault.Internal("%v", err))
	}
	return s
}

// Placeholders returns the sorted, de-duplicated placeholder names.
func (t *Template) Placeholders() []string {
	var names []string
	for _, pt := range t.parts {
		if pt.param {
			names = append(names, pt.text)
		}
	}
	return dedup(names)
}

// Empty reports whether t renders to the empty string.
func (t *Template) Empty() bool { return t == nil || t.src == "" }

// String returns the template source.
func (t *Template) String() string {
	if t == nil {
		return ""
	}
	return t.src
}

func dedup(names []string) []string {
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}

// Expand parses and executes src in one step.
func Expand(src string, p Params) (string, error) {
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Execute(p)
}
