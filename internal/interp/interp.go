// Package interp builds and installs CPython against a composed environment.
package interp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/compose"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/goplus/pyport/pkgs/buildsys"
	"github.com/goplus/pyport/x/autotools"
)

// ErrInterpreterBuild marks a failed configure, make or make install of
// CPython itself.
var ErrInterpreterBuild = errors.New("interpreter build failed")

// GenericName is the unversioned executable name.
const GenericName = "python"

// Builder runs the CPython build.
type Builder struct {
	Runner buildsys.Runner
	Jobs   int
	Logger *log.Logger
}

// Request describes one interpreter build.
type Request struct {
	SourceDir  string
	InstallDir string
	Env        compose.Environment
	Version    pyver.Version
}

// Install describes an installed interpreter tree.
type Install struct {
	Root      string
	BinDir    string
	LibDir    string
	Main      string // canonical executable name within BinDir
	MainFound bool   // false when Main is the fallback and may not exist
}

// MainPath returns the full path of the main executable.
func (i *Install) MainPath() string {
	return filepath.Join(i.BinDir, i.Main)
}

// Build configures, compiles and installs CPython into req.InstallDir,
// then discovers the main executable.
func (b *Builder) Build(ctx context.Context, req Request) (*Install, error) {
	at := autotools.New(b.Runner, req.SourceDir, "", req.InstallDir)
	at.Jobs(b.Jobs)
	var bs buildsys.BuildSystem = at
	for _, v := range req.Env.Vars() {
		bs.Env(v.Name, v.Value)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"configure", func() error { return bs.Configure(ctx, req.Env.ConfigureArgs...) }},
		{"make", func() error { return bs.Build(ctx) }},
		{"make install", func() error { return bs.Install(ctx) }},
	}
	for _, step := range steps {
		b.logger().Info("Building CPython", "version", req.Version, "step", step.name)
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInterpreterBuild, step.name, err)
		}
	}
	return Inspect(bs.OutputDir(), req.Version), nil
}

// Inspect describes an existing install tree of version v.
func Inspect(root string, v pyver.Version) *Install {
	bin := filepath.Join(root, "bin")
	main, found := DiscoverMain(bin, Candidates(v))
	return &Install{
		Root:      root,
		BinDir:    bin,
		LibDir:    filepath.Join(root, "lib"),
		Main:      main,
		MainFound: found,
	}
}

// Candidates returns the names the main executable may be installed
// under, in probing order.
func Candidates(v pyver.Version) []string {
	return []string{
		GenericName,
		fmt.Sprintf("python%d", v.Major()),
		"python" + v.MajorMinor(),
	}
}

// DiscoverMain returns the first candidate present in binDir. A candidate
// that is a symlink to another file of binDir resolves to that file's
// name. When no candidate exists it returns GenericName and false.
func DiscoverMain(binDir string, candidates []string) (string, bool) {
	for _, name := range candidates {
		path := filepath.Join(binDir, name)
		fi, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			if target, err := os.Readlink(path); err == nil {
				if !filepath.IsAbs(target) {
					target = filepath.Join(binDir, target)
				}
				if filepath.Dir(target) == filepath.Clean(binDir) {
					if _, err := os.Stat(target); err == nil {
						return filepath.Base(target), true
					}
				}
			}
		}
		return name, true
	}
	return GenericName, false
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}
