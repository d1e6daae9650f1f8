// Copyright 2024 The pyport Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package finalize turns an installed CPython tree into a relocatable,
// trimmed distribution.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/goplus/pyport/pkgs/buildsys"
)

// ErrAlreadyFinalized is returned by a second Run of the same Pipeline.
var ErrAlreadyFinalized = errors.New("install tree already finalized")

// Stage identifies one finalization step.
type Stage int

const (
	StageBootstrap Stage = iota
	StageDedup
	StageNormalize
	StagePrune
	StageCompile
	StageArchive
)

var stageNames = [...]string{
	StageBootstrap: "bootstrap",
	StageDedup:     "dedup",
	StageNormalize: "normalize",
	StagePrune:     "prune",
	StageCompile:   "compile",
	StageArchive:   "archive",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Options configures a Pipeline.
type Options struct {
	Version pyver.Version
	Static  bool
	// TLS enables the pip/setuptools/wheel upgrade.
	TLS bool
	// Compile byte-compiles the standard library after pruning.
	Compile bool
	// Main is the canonical executable name in bin/.
	Main   string
	Runner buildsys.Runner
	// Archive is called with the finalized root. Nil skips archival.
	Archive func(root string) error
	Logger  *log.Logger
}

// Diagnostics collects what the pipeline changed.
type Diagnostics struct {
	Stages    []Stage
	Deduped   bool
	Removed   []string // pruned basenames, sorted
	Rewritten []string // bin/ files whose shebang was rewritten
}

// Summary returns a one-line account of the pruned artifacts.
func (d *Diagnostics) Summary() string {
	if len(d.Removed) == 0 {
		return "Nothing to clean"
	}
	noun := "build artifacts"
	if len(d.Removed) == 1 {
		noun = "build artifact"
	}
	return fmt.Sprintf("Cleaned %d %s: %s", len(d.Removed), noun, strings.Join(d.Removed, ", "))
}

// Pipeline runs the finalization stages, strictly in order, on one
// install tree.
type Pipeline struct {
	opts Options
	diag Diagnostics
	ran  bool
}

// New returns a Pipeline for opts.
func New(opts Options) *Pipeline {
	if opts.Main == "" {
		opts.Main = "python"
	}
	return &Pipeline{opts: opts}
}

// Diagnostics returns what the last Run changed.
func (p *Pipeline) Diagnostics() *Diagnostics { return &p.diag }

// Run finalizes the tree at root in place. A Pipeline can only run once.
func (p *Pipeline) Run(ctx context.Context, root string) error {
	if p.ran {
		return ErrAlreadyFinalized
	}
	p.ran = true

	bin := filepath.Join(root, "bin")
	lib := filepath.Join(root, "lib")
	o := p.opts

	stages := []struct {
		stage Stage
		on    bool
		run   func() error
	}{
		{StageBootstrap, o.TLS, func() error {
			return UpgradeBootstrap(ctx, o.Runner, bin, o.Main)
		}},
		{StageDedup, o.Static, func() (err error) {
			p.diag.Deduped, err = DedupStaticLibs(lib)
			return err
		}},
		{StageNormalize, true, func() (err error) {
			p.diag.Rewritten, err = NormalizeExecutables(bin, o.Main)
			for _, name := range p.diag.Rewritten {
				p.logger().Info("Auto-corrected shebang", "file", filepath.Join("bin", name))
			}
			return err
		}},
		{StagePrune, true, func() (err error) {
			p.diag.Removed, err = Prune(root, Rules{Version: o.Version, Static: o.Static})
			if err == nil {
				p.logger().Info(p.diag.Summary())
			}
			return err
		}},
		{StageCompile, o.Compile, func() error {
			return Compile(ctx, o.Runner, bin, o.Main)
		}},
		{StageArchive, o.Archive != nil, func() error {
			return o.Archive(root)
		}},
	}
	for _, s := range stages {
		if !s.on {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.logger().Debug("Finalize stage", "stage", s.stage)
		if err := s.run(); err != nil {
			return fmt.Errorf("finalize %s: %w", s.stage, err)
		}
		p.diag.Stages = append(p.diag.Stages, s.stage)
	}
	return nil
}

func (p *Pipeline) logger() *log.Logger {
	if p.opts.Logger != nil {
		return p.opts.Logger
	}
	return log.Default()
}

// UpgradeBootstrap upgrades pip, setuptools and wheel with the installed
// interpreter.
func UpgradeBootstrap(ctx context.Context, runner buildsys.Runner, binDir, main string) error {
	return runner.Run(ctx, buildsys.Cmd{
		Dir:  binDir,
		Name: filepath.Join(binDir, main),
		Args: []string{"-mpip", "install", "-U", "pip", "setuptools", "wheel"},
	})
}

// Compile byte-compiles the interpreter's library with compileall.
func Compile(ctx context.Context, runner buildsys.Runner, binDir, main string) error {
	return runner.Run(ctx, buildsys.Cmd{
		Dir:  binDir,
		Name: filepath.Join(binDir, main),
		Args: []string{"-mcompileall"},
	})
}
