// Package build runs a complete pyport build: optional modules, the
// interpreter, finalization and packaging.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/archive"
	"github.com/goplus/pyport/internal/compose"
	"github.com/goplus/pyport/internal/config"
	"github.com/goplus/pyport/internal/env"
	"github.com/goplus/pyport/internal/finalize"
	"github.com/goplus/pyport/internal/interp"
	"github.com/goplus/pyport/internal/modules"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/goplus/pyport/internal/source"
	"github.com/goplus/pyport/mod/module"
	"github.com/goplus/pyport/pkgs/buildsys"
)

// Work directory layout:
//
//	workDir/
//	  .lock                      # held for the whole run
//	  downloads/                 # cached source tarballs
//	  build/<version>/           # wiped at the start of every run
//	    deps/                    # shared prefix of the optional modules
//	    modules/src/<module>/    # module sources
//	    modules/stage/<module>/  # module staging roots
//	    cpython/                 # CPython sources
//	    <version>/               # CPython install tree, archived as-is

// Builder runs builds.
type Builder struct {
	Config  *config.Config
	Fetcher source.Fetcher
	Runner  buildsys.Runner
	Logger  *log.Logger
	// WorkDir defaults to env.WorkDir().
	WorkDir string
	Now     func() time.Time
}

// Result describes a finished build.
type Result struct {
	Archive   string
	Manifest  string
	Digest    string
	Modules   []*modules.BuiltModule
	Main      string
	MainFound bool
	Removed   []string
	Rewritten []string
}

// PythonURL returns the CPython source tarball URL of v under base.
func PythonURL(base string, v pyver.Version) string {
	return fmt.Sprintf("%s/%s/Python-%s.tar.xz", base, v, v)
}

// Run builds the configured distribution. Any failure aborts the run
// before an archive is written.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	cfg := b.Config
	if err := cfg.LoadPins(); err != nil {
		return nil, &Error{Op: "config", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Op: "config", Err: err}
	}
	v, err := cfg.PythonVersion()
	if err != nil {
		return nil, &Error{Op: "config", Err: err}
	}
	plat, err := cfg.Platform()
	if err != nil {
		return nil, &Error{Op: "config", Err: err}
	}

	workDir := b.WorkDir
	if workDir == "" {
		if workDir, err = env.WorkDir(); err != nil {
			return nil, err
		}
	}
	unlock, err := lockDir(workDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Only the version subdirectory of the build dir is ever wiped.
	buildBase := cfg.BuildDir
	if buildBase == "" {
		buildBase = filepath.Join(workDir, "build")
	}
	if buildBase, err = filepath.Abs(buildBase); err != nil {
		return nil, err
	}
	buildRoot := filepath.Join(buildBase, v.String())
	if err := os.RemoveAll(buildRoot); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return nil, err
	}
	logger := b.logger()
	logger.Info("Building CPython", "version", v, "platform", plat, "static", cfg.Static)

	// Optional modules.
	resolver := &modules.Resolver{
		Prefix:   modules.NewPrefix(filepath.Join(buildRoot, "deps")),
		WorkDir:  filepath.Join(buildRoot, "modules"),
		Fetcher:  b.Fetcher,
		Runner:   b.Runner,
		Logger:   logger,
		Jobs:     cfg.ModuleJobs,
		MakeJobs: cfg.Jobs,
	}
	set, err := resolver.Resolve(ctx, cfg.Policy(plat))
	if err != nil {
		return nil, opError("resolve", err)
	}

	// Interpreter.
	srcDir, err := b.Fetcher.Fetch(ctx, PythonURL(cfg.PythonURL, v), filepath.Join(buildRoot, "cpython"))
	if err != nil {
		return nil, &Error{Op: "fetch", Err: err}
	}
	ib := &interp.Builder{Runner: b.Runner, Jobs: cfg.Jobs, Logger: logger}
	inst, err := ib.Build(ctx, interp.Request{
		SourceDir:  srcDir,
		InstallDir: filepath.Join(buildRoot, v.String()),
		Env:        compose.Compose(resolver.Prefix.Root, set, v, compose.Options{Static: cfg.Static}),
		Version:    v,
	})
	if err != nil {
		return nil, &Error{Op: "interpreter", Err: err}
	}
	if !inst.MainFound {
		logger.Warn("No python executable found, assuming default name", "bin", inst.BinDir, "main", inst.Main)
	}

	// Finalization and packaging.
	distDir, err := filepath.Abs(cfg.DistDir)
	if err != nil {
		return nil, err
	}
	archivePath := filepath.Join(distDir, archive.Name(v, plat, cfg.Static, cfg.Compression))
	var digest string
	pipeline := finalize.New(finalize.Options{
		Version: v,
		Static:  cfg.Static,
		TLS:     set.HasTLS(),
		Compile: cfg.Compile,
		Main:    inst.Main,
		Runner:  b.Runner,
		Logger:  logger,
		Archive: func(root string) (err error) {
			if digest, err = archive.Digest(root); err != nil {
				return err
			}
			logger.Info("Compressing", "archive", archivePath)
			return archive.Compress(root, archivePath)
		},
	})
	if err := pipeline.Run(ctx, inst.Root); err != nil {
		return nil, &Error{Op: "finalize", Err: err}
	}
	diag := pipeline.Diagnostics()

	res := &Result{
		Archive:   archivePath,
		Manifest:  ManifestPath(archivePath),
		Digest:    digest,
		Modules:   set.Modules(),
		Main:      inst.Main,
		MainFound: inst.MainFound,
		Removed:   diag.Removed,
		Rewritten: diag.Rewritten,
	}
	m := &Manifest{
		Python:    v.String(),
		Platform:  plat.String(),
		Static:    cfg.Static,
		Archive:   filepath.Base(archivePath),
		Digest:    digest,
		Main:      inst.Main,
		Removed:   diag.Removed,
		BuildTime: b.now().UTC(),
	}
	for _, mod := range res.Modules {
		m.Modules = append(m.Modules, module.Version{Name: mod.Name, Version: mod.Version}.String())
	}
	if err := writeManifest(res.Manifest, m); err != nil {
		os.Remove(archivePath)
		return nil, &Error{Op: "manifest", Err: err}
	}
	logger.Info("Built", "archive", archivePath, "digest", digest)
	return res, nil
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}
