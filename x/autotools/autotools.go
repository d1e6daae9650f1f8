// Package autotools wraps the classic configure/make/make-install workflow.
package autotools

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goplus/pyport/pkgs/buildsys"
)

// AutoTools drives Autotools-style builds.
type AutoTools struct {
	runner     buildsys.Runner
	sourceDir  string
	buildDir   string
	installDir string
	script     string
	target     string
	jobs       int
	env        map[string]string
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New returns a ready-to-use AutoTools.
// An empty buildDir builds in the source tree.
func New(runner buildsys.Runner, sourceDir, buildDir, installDir string) *AutoTools {
	return &AutoTools{
		runner:     runner,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		script:     "configure",
		target:     "install",
		env:        make(map[string]string),
	}
}

// Script overrides the configure script path, relative to the source dir
// (e.g. "unix/configure" for Tcl, "config" for OpenSSL).
func (a *AutoTools) Script(rel string) { a.script = rel }

// InstallTarget overrides the make target run by Install
// (e.g. "install_sw" for OpenSSL).
func (a *AutoTools) InstallTarget(target string) { a.target = target }

// Jobs sets the make -j level. Values below 2 run make serially.
func (a *AutoTools) Jobs(n int) { a.jobs = n }

// Env sets key=value for every command spawned later.
func (a *AutoTools) Env(key, value string) {
	a.env[key] = value
}

// Configure runs <sourceDir>/<script> inside the build directory.
// --prefix is prepended automatically when installDir is set.
// Extra flags are appended after --prefix.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	dir := a.workDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	flags := make([]string, 0, 1+len(args))
	if a.installDir != "" {
		flags = append(flags, "--prefix="+a.installDir)
	}
	return a.run(ctx, filepath.Join(a.sourceDir, a.script), append(flags, args...))
}

// Build runs "make" with optional extra arguments.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	var flags []string
	if a.jobs > 1 {
		flags = append(flags, "-j"+strconv.Itoa(a.jobs))
	}
	return a.run(ctx, "make", append(flags, args...))
}

// Install runs "make install" with optional extra arguments appended.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	return a.run(ctx, "make", append([]string{a.target}, args...))
}

// OutputDir returns installDir if set, otherwise the build dir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.workDir()
}

func (a *AutoTools) workDir() string {
	if a.buildDir == "" {
		return a.sourceDir
	}
	return a.buildDir
}

func (a *AutoTools) run(ctx context.Context, name string, args []string) error {
	env := make(map[string]string, len(a.env))
	for k, v := range a.env {
		env[k] = v
	}
	return a.runner.Run(ctx, buildsys.Cmd{
		Dir:  a.workDir(),
		Env:  env,
		Name: name,
		Args: args,
	})
}
