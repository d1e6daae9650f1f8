package modules

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
)

func newResolver(t *testing.T, jobs int) (*Resolver, *fakeRunner, *fakeFetcher) {
	t.Helper()
	work := t.TempDir()
	runner := &fakeRunner{workDir: work, fail: make(map[string]bool)}
	fetcher := &fakeFetcher{}
	return &Resolver{
		Prefix:   NewPrefix(filepath.Join(work, "deps")),
		WorkDir:  work,
		Fetcher:  fetcher,
		Runner:   runner,
		Logger:   discard,
		Jobs:     jobs,
		MakeJobs: 2,
	}, runner, fetcher
}

func names(set *Set) []string {
	var out []string
	for _, m := range set.Modules() {
		out = append(out, m.Name)
	}
	return out
}

func TestResolveAll(t *testing.T) {
	for _, jobs := range []int{1, 4} {
		r, runner, fetcher := newResolver(t, jobs)
		set, err := r.Resolve(context.Background(), &Policy{Platform: linux})
		if err != nil {
			t.Fatalf("jobs=%d: %v", jobs, err)
		}
		if got, want := strings.Join(names(set), ","), strings.Join(Names(), ","); got != want {
			t.Errorf("jobs=%d: built %s, want %s", jobs, got, want)
		}
		if len(fetcher.urls) != len(Names()) || len(runner.built) != len(Names()) {
			t.Errorf("jobs=%d: %d fetches, %d installs", jobs, len(fetcher.urls), len(runner.built))
		}
		m, ok := set.Get("openssl")
		if !ok {
			t.Fatalf("jobs=%d: openssl missing", jobs)
		}
		if m.Version != "1.1.1k" || m.IncludeDir != r.Prefix.IncludeDir() || m.LibDir != r.Prefix.LibDir() {
			t.Errorf("openssl = %+v", m)
		}
		if want := []string{"include/openssl.h", "lib/libopenssl.a", "share/doc/openssl.1"}; strings.Join(m.Files, ",") != strings.Join(want, ",") {
			t.Errorf("openssl files = %v, want %v", m.Files, want)
		}
		if owner, _ := r.Prefix.Owner("lib/libtk.a"); owner != "tk" {
			t.Errorf("owner of lib/libtk.a = %q", owner)
		}
		if !set.HasTLS() {
			t.Error("HasTLS() = false")
		}
	}
}

func TestResolveNone(t *testing.T) {
	r, runner, _ := newResolver(t, 1)
	set, err := r.Resolve(context.Background(), &Policy{Select: []string{SelectNone}, Platform: linux})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Modules()) != 0 || len(runner.cmds) != 0 {
		t.Errorf("built %v with %d commands, want nothing", names(set), len(runner.cmds))
	}
	if _, ok := set.Get("zlib"); ok {
		t.Error("Get(zlib) on an empty set")
	}
	if set.HasTLS() {
		t.Error("HasTLS() on an empty set")
	}
}

func TestResolveFatalFailure(t *testing.T) {
	r, runner, _ := newResolver(t, 1)
	runner.fail["openssl"] = true
	_, err := r.Resolve(context.Background(), &Policy{Platform: linux})
	if !errors.Is(err, ErrModuleBuild) {
		t.Fatalf("err = %v, want ErrModuleBuild", err)
	}
	var be *BuildError
	if !errors.As(err, &be) || be.Module != "openssl" {
		t.Errorf("err = %v, want BuildError for openssl", err)
	}
	for _, m := range runner.built {
		if m == "sqlite" {
			t.Error("modules after a fatal failure must not be built")
		}
	}
}

func TestResolveBestEffort(t *testing.T) {
	for _, jobs := range []int{1, 3} {
		r, runner, _ := newResolver(t, jobs)
		runner.fail["tcl"] = true
		set, err := r.Resolve(context.Background(), &Policy{Platform: linux, BestEffort: []string{"tcl"}})
		if err != nil {
			t.Fatalf("jobs=%d: best-effort failure must not fail the run: %v", jobs, err)
		}
		for _, k := range []Kind{Tcl, Tk, Tix} {
			if set.Has(k) {
				t.Errorf("jobs=%d: %s present after tcl failed", jobs, k)
			}
		}
		if !set.Has(Zlib) || !set.Has(Openssl) {
			t.Errorf("jobs=%d: built %v", jobs, names(set))
		}
	}
}

func TestResolveValidates(t *testing.T) {
	r, _, _ := newResolver(t, 1)
	if _, err := r.Resolve(context.Background(), &Policy{Select: []string{"pillow"}}); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("err = %v, want ErrUnknownModule", err)
	}
}

func TestResolveParallelAggregatesFailures(t *testing.T) {
	r, _, fetcher := newResolver(t, 4)
	var both sync.WaitGroup
	both.Add(2)
	fetcher.hook = func(module string) error {
		if module == "zlib" || module == "xz" {
			both.Done()
			both.Wait()
			return errFetch
		}
		return nil
	}
	_, err := r.Resolve(context.Background(), &Policy{Platform: linux})
	if !errors.Is(err, errFetch) {
		t.Fatalf("err = %v, want fetch error", err)
	}
	var failed []string
	for _, line := range strings.Split(err.Error(), "\n") {
		failed = append(failed, strings.Fields(line)[1])
	}
	sort.Strings(failed)
	if strings.Join(failed, ",") != "xz:,zlib:" {
		t.Errorf("failed modules = %v, want xz and zlib", failed)
	}
}
