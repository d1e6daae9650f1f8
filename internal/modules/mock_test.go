package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/pkgs/buildsys"
)

var discard = log.New(io.Discard)

// fakeFetcher creates an empty source tree instead of downloading.
type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
	// hook runs before Fetch returns; a non-nil error fails the fetch.
	hook func(module string) error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(filepath.Base(destDir)); err != nil {
			return "", err
		}
	}
	src := filepath.Join(destDir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		return "", err
	}
	return src, nil
}

// fakeRunner pretends to build. The install step writes
// lib/lib<module>.a and include/<module>.h into the staging root.
type fakeRunner struct {
	workDir string
	fail    map[string]bool

	mu    sync.Mutex
	cmds  []buildsys.Cmd
	built []string
}

func (r *fakeRunner) Run(ctx context.Context, c buildsys.Cmd) error {
	module := r.module(c.Dir)
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
	if r.fail[module] {
		return fmt.Errorf("%s: exit status 2", c)
	}

	var root string
	for _, arg := range c.Args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		switch k {
		case "DESTDIR", "INSTALL_ROOT":
			root = filepath.Join(v, filepath.Join(r.workDir, "deps"))
		case "PREFIX":
			root = v
		}
	}
	if root == "" {
		return nil
	}
	files := map[string]string{
		filepath.Join("lib", "lib"+module+".a"):    "archive",
		filepath.Join("include", module+".h"):      "header",
		filepath.Join("share", "doc", module+".1"): "man",
	}
	for rel, data := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.built = append(r.built, module)
	r.mu.Unlock()
	return nil
}

// module recovers the module name from a dir under <workDir>/src/<module>.
func (r *fakeRunner) module(dir string) string {
	rel, err := filepath.Rel(filepath.Join(r.workDir, "src"), dir)
	if err != nil {
		return ""
	}
	name, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return name
}

var errFetch = errors.New("fetch refused")
