package modules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/par"
	"github.com/goplus/pyport/internal/source"
	"github.com/goplus/pyport/mod/module"
	"github.com/goplus/pyport/pkgs/buildsys"
)

// ErrModuleBuild marks a module whose fetch, build or merge failed.
var ErrModuleBuild = errors.New("module build failed")

// BuildError reports the failure of one module.
type BuildError struct {
	Module string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *BuildError) Unwrap() []error { return []error{ErrModuleBuild, e.Err} }

// BuiltModule describes a module installed into the shared prefix.
type BuiltModule struct {
	Kind       Kind
	Name       string
	Version    string
	Prefix     string
	IncludeDir string
	LibDir     string
	Files      []string // paths claimed in the prefix, relative and slash separated
}

// Set is the outcome of Resolve: the modules that were built.
// A nil Set is empty.
type Set struct {
	mods [numKinds]*BuiltModule
}

// NewSet returns a Set holding mods.
func NewSet(mods ...*BuiltModule) *Set {
	s := &Set{}
	for _, m := range mods {
		s.mods[m.Kind] = m
	}
	return s
}

// Get returns the module named name, if it was built.
func (s *Set) Get(name string) (*BuiltModule, bool) {
	d, err := Lookup(name)
	if err != nil {
		return nil, false
	}
	m := s.get(d.Kind)
	return m, m != nil
}

// Has reports whether k was built.
func (s *Set) Has(k Kind) bool {
	return s.get(k) != nil
}

// HasTLS reports whether a TLS-capable module was built.
func (s *Set) HasTLS() bool {
	for _, m := range s.Modules() {
		if catalog[m.Kind].TLS {
			return true
		}
	}
	return false
}

// Modules returns the built modules in build order.
func (s *Set) Modules() []*BuiltModule {
	if s == nil {
		return nil
	}
	var out []*BuiltModule
	for _, m := range s.mods {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (s *Set) get(k Kind) *BuiltModule {
	if s == nil || k < 0 || k >= numKinds {
		return nil
	}
	return s.mods[k]
}

// Resolver builds the enabled modules into a shared prefix.
type Resolver struct {
	Prefix  *Prefix
	WorkDir string // per-module sources and staging dirs live here
	Fetcher source.Fetcher
	Runner  buildsys.Runner
	Logger  *log.Logger
	// Jobs is the number of modules built at once.
	Jobs int
	// MakeJobs is passed to make -j for each module.
	MakeJobs int
}

// Resolve builds every module the policy enables. A failing module aborts
// the run unless the policy marks it best-effort, in which case it and
// its dependents are left out of the returned Set.
func (r *Resolver) Resolve(ctx context.Context, policy *Policy) (*Set, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	plan := policy.Plan()
	for _, dec := range plan {
		if !dec.Enabled {
			r.logger().Debug("Skipping module", "module", dec.Name, "reason", dec.Reason)
		}
	}
	if r.Jobs > 1 {
		return r.resolveParallel(ctx, plan)
	}

	set := &Set{}
	for _, dec := range plan {
		if !dec.Enabled {
			continue
		}
		if missing, ok := r.missingRequirement(set, dec); ok {
			r.logger().Warn("Skipping module", "module", dec.Name, "reason", "requires "+missing)
			continue
		}
		m, err := r.build(ctx, dec)
		if err != nil {
			if dec.BestEffort {
				r.logger().Warn("Best-effort module failed", "module", dec.Name, "err", err)
				continue
			}
			return nil, err
		}
		set.mods[dec.Kind] = m
	}
	return set, nil
}

// resolveParallel starts a module as soon as all of its requirements are
// finished. Modules not yet started when a fatal failure happens are not
// built at all.
func (r *Resolver) resolveParallel(ctx context.Context, plan []Decision) (*Set, error) {
	var (
		mu      sync.Mutex
		set     = &Set{}
		errs    [numKinds]error
		fatal   bool
		pending [numKinds]int
		work    par.Work[Kind]
	)
	dependents := make(map[Kind][]Kind)
	for _, dec := range plan {
		if !dec.Enabled {
			continue
		}
		pending[dec.Kind] = len(dec.Requires)
		for _, req := range dec.Requires {
			dependents[req] = append(dependents[req], dec.Kind)
		}
		if len(dec.Requires) == 0 {
			work.Add(dec.Kind)
		}
	}

	work.Do(r.Jobs, func(k Kind) {
		dec := plan[k]
		defer func() {
			mu.Lock()
			defer mu.Unlock()
			for _, d := range dependents[k] {
				if pending[d]--; pending[d] == 0 {
					work.Add(d)
				}
			}
		}()

		mu.Lock()
		stop := fatal
		missing, skip := r.missingRequirement(set, dec)
		mu.Unlock()
		if stop {
			return
		}
		if skip {
			r.logger().Warn("Skipping module", "module", dec.Name, "reason", "requires "+missing)
			return
		}

		m, err := r.build(ctx, dec)

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil:
			set.mods[k] = m
		case dec.BestEffort:
			r.logger().Warn("Best-effort module failed", "module", dec.Name, "err", err)
		default:
			errs[k] = err
			fatal = true
		}
	})

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *Resolver) missingRequirement(set *Set, dec Decision) (string, bool) {
	for _, req := range dec.Requires {
		if !set.Has(req) {
			return catalog[req].Name, true
		}
	}
	return "", false
}

func (r *Resolver) build(ctx context.Context, dec Decision) (*BuiltModule, error) {
	fail := func(err error) (*BuiltModule, error) {
		return nil, &BuildError{Module: dec.Name, Err: err}
	}
	r.logger().Info("Building module", "module", dec.Name, "version", dec.Version)

	dir, err := module.EscapePath(dec.Name)
	if err != nil {
		return fail(err)
	}
	srcRoot := filepath.Join(r.WorkDir, "src", dir)
	stage := filepath.Join(r.WorkDir, "stage", dir)
	if err := os.RemoveAll(stage); err != nil {
		return fail(err)
	}
	defer os.RemoveAll(stage)

	srcDir, err := r.Fetcher.Fetch(ctx, dec.Recipe.URL(dec.Version), srcRoot)
	if err != nil {
		return fail(err)
	}
	err = dec.Recipe.Build(ctx, BuildRequest{
		Version:   dec.Version,
		SourceDir: srcDir,
		Prefix:    r.Prefix.Root,
		StageDir:  stage,
		Runner:    r.Runner,
		Jobs:      r.MakeJobs,
	})
	if err != nil {
		return fail(err)
	}

	installed := filepath.Join(stage, r.Prefix.Root)
	if _, err := os.Stat(installed); err != nil {
		return fail(fmt.Errorf("nothing installed under %s", installed))
	}
	files, err := r.Prefix.Merge(dec.Name, installed)
	if err != nil {
		return fail(err)
	}
	r.logger().Debug("Merged module", "module", dec.Name, "files", len(files))
	return &BuiltModule{
		Kind:       dec.Kind,
		Name:       dec.Name,
		Version:    dec.Version,
		Prefix:     r.Prefix.Root,
		IncludeDir: r.Prefix.IncludeDir(),
		LibDir:     r.Prefix.LibDir(),
		Files:      files,
	}, nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
