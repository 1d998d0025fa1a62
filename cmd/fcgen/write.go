// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/floatctl"
	"github.com/gogpu/floatctl/features"
)

// manifest describes the cases of one group.
type manifest struct {
	Group string         `json:"group"`
	Cases []manifestCase `json:"cases"`
}

type manifestCase struct {
	Name     string          `json:"name"`
	Files    []string        `json:"files"`
	SPIRV    string          `json:"spirv"`
	Requires []string        `json:"requires"`
	Input    string          `json:"input,omitempty"`
	Output   string          `json:"output"`
	Checks   []manifestCheck `json:"checks"`

	// Stage is the stage running the operation of a graphics case.
	Stage string `json:"stage,omitempty"`
}

type manifestCheck struct {
	Op       string `json:"op"`
	Type     string `json:"type"`
	Storage  string `json:"storage"`
	Offset   int    `json:"offset"`
	Expected string `json:"expected"`
}

// writeSuite writes every group of suite below dir, jobs groups at a time.
func writeSuite(suite *floatctl.Suite, dir string, jobs int, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(context.Background())
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for _, grp := range suite.Groups {
		grp := grp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeGroup(grp, dir); err != nil {
				return errors.Wrap(err, grp.Path)
			}
			logger.Debug("fcgen: wrote group", "path", grp.Path, "cases", len(grp.Cases))
			return nil
		})
	}
	return g.Wait()
}

func writeGroup(grp *floatctl.Group, dir string) error {
	gdir := filepath.Join(dir, filepath.FromSlash(grp.Path))
	if err := os.MkdirAll(gdir, 0o755); err != nil {
		return err
	}

	m := manifest{Group: grp.Path, Cases: make([]manifestCase, 0, len(grp.Cases))}
	for _, c := range grp.Cases {
		mc := describe(c)
		if c.Compute != nil {
			mc.Files = []string{c.Name + ".spvasm"}
			if err := writeFile(gdir, mc.Files[0], c.Compute.Assembly); err != nil {
				return err
			}
		} else {
			mc.Stage = c.Graphics.Stage.String()
			mc.Files = []string{c.Name + ".vert.spvasm", c.Name + ".frag.spvasm"}
			if err := writeFile(gdir, mc.Files[0], c.Graphics.Vertex); err != nil {
				return err
			}
			if err := writeFile(gdir, mc.Files[1], c.Graphics.Fragment); err != nil {
				return err
			}
		}
		m.Cases = append(m.Cases, mc)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(gdir, "manifest.json"), append(data, '\n'), 0o644)
}

func writeFile(dir, name, text string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644)
}

// describe fills the manifest entry of c except its files.
func describe(c *floatctl.Case) manifestCase {
	req := c.Requirements()
	// Against an empty device every requirement is missing.
	mc := manifestCase{
		Name:     c.Name,
		SPIRV:    req.SPIRVVersion.String(),
		Requires: req.Missing(features.DeviceCaps{}),
		Input:    hex.EncodeToString(c.Input()),
		Output:   hex.EncodeToString(c.Output()),
	}
	for _, ch := range c.Checks() {
		mc.Checks = append(mc.Checks, manifestCheck{
			Op:       ch.Op.String(),
			Type:     ch.Type.String(),
			Storage:  ch.Storage.String(),
			Offset:   ch.Offset,
			Expected: ch.Expected.String(),
		})
	}
	return mc
}
