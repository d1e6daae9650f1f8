package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goplus/pyport/pkgs/buildsys"
)

// mockFetcher creates an empty source tree instead of downloading.
type mockFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (m *mockFetcher) Fetch(ctx context.Context, url, destDir string) (string, error) {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	m.mu.Unlock()
	src := filepath.Join(destDir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		return "", err
	}
	return src, nil
}

// mockRunner pretends to run configure, make and the installed
// interpreter. Installs fabricate files: modules get lib/lib<name>.a, and
// CPython gets the tree produced by installPython.
type mockRunner struct {
	fail map[string]bool // module names, or "cpython"
	// noMain installs CPython without any python executable.
	noMain bool

	mu       sync.Mutex
	prefixes map[string]string // configure dir -> --prefix
	cmds     []buildsys.Cmd
}

func newMockRunner() *mockRunner {
	return &mockRunner{fail: make(map[string]bool), prefixes: make(map[string]string)}
}

var errExit = errors.New("exit status 2")

func (m *mockRunner) Run(ctx context.Context, c buildsys.Cmd) error {
	m.mu.Lock()
	m.cmds = append(m.cmds, c)
	for _, arg := range c.Args {
		if p, ok := strings.CutPrefix(arg, "--prefix="); ok {
			m.prefixes[c.Dir] = p
		}
	}
	prefix := m.prefixes[c.Dir]
	m.mu.Unlock()

	name := target(c.Dir)
	if m.fail[name] {
		return errExit
	}
	if c.Name != "make" {
		return nil
	}
	for _, arg := range c.Args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		switch k {
		case "DESTDIR", "INSTALL_ROOT":
			return writeFiles(filepath.Join(v, prefix), map[string]string{
				"lib/lib" + name + ".a":  "archive",
				"include/" + name + ".h": "header",
			})
		case "PREFIX":
			return writeFiles(v, map[string]string{"lib/lib" + name + ".a": "archive"})
		}
	}
	if name == "cpython" && len(c.Args) > 0 && c.Args[0] == "install" {
		return installPython(prefix, m.noMain)
	}
	return nil
}

func (m *mockRunner) commands(name string) []buildsys.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []buildsys.Cmd
	for _, c := range m.cmds {
		if target(c.Dir) == name {
			out = append(out, c)
		}
	}
	return out
}

// target names what a command builds from the directory it runs in.
func target(dir string) string {
	parts := strings.Split(filepath.ToSlash(dir), "/")
	for i, p := range parts {
		switch {
		case p == "cpython":
			return "cpython"
		case p == "src" && i > 0 && parts[i-1] == "modules" && i+1 < len(parts):
			return parts[i+1]
		}
	}
	return filepath.Base(dir)
}

func installPython(root string, noMain bool) error {
	files := make(map[string]string)
	for _, name := range []string{"bin/2to3-3.9", "bin/idle3.9", "bin/pip3", "bin/pydoc3.9"} {
		files[name] = "#!" + root + "/bin/python3.9\n"
	}
	for _, name := range []string{
		"include/python3.9/Python.h",
		"lib/libpython3.9.a",
		"lib/pkgconfig/python3.pc",
		"lib/python3.9/os.py",
		"lib/python3.9/__pycache__/os.cpython-39.pyc",
		"lib/python3.9/__phello__.foo.py",
		"lib/python3.9/test/test_os.py",
		"lib/python3.9/unittest/tests/test_case.py",
		"lib/python3.9/idlelib/idle_test/test_run.py",
		"lib/python3.9/ensurepip/_bundled/pip.whl",
		"lib/python3.9/config-3.9-x86_64-linux-gnu/Makefile",
		"lib/python3.9/config-3.9-x86_64-linux-gnu/libpython3.9.a",
		"lib/python3.9/site-packages/README.txt",
	} {
		files[name] = filepath.Base(name)
	}
	files["bin/python3.9-config"] = "#!/bin/sh\necho config\n"
	files["bin/helper"] = "#!" + root + "/bin/python3.9\nimport sys\n"
	if !noMain {
		files["bin/python3.9"] = "\x7fELF"
	}
	if err := writeFiles(root, files); err != nil {
		return err
	}
	if noMain {
		return nil
	}
	return os.Symlink("python3.9", filepath.Join(root, "bin", "python3"))
}

func writeFiles(root string, files map[string]string) error {
	for name, data := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(data), 0o755); err != nil {
			return err
		}
	}
	return nil
}
