package finalize

import (
	"sort"
	"strings"

	"github.com/goplus/pyport/internal/pyver"
)

// alwaysClean names files and directories that never ship: bytecode
// caches, test suites and demo files.
var alwaysClean = []string{
	"__phello__.foo.py",
	"__pycache__",
	"_bundled",
	"idle_test",
	"test",
	"tests",
}

// Rules decides which basenames are pruned from an install tree.
type Rules struct {
	Version pyver.Version
	Static  bool
}

// Basenames returns the exact names to remove, sorted.
func (r Rules) Basenames() []string {
	names := append([]string(nil), alwaysClean...)
	if !r.Static {
		names = append(names, r.Version.StaticLibName())
	}
	sort.Strings(names)
	return names
}

// Prefixes returns the name prefixes to remove.
func (r Rules) Prefixes() []string {
	if r.Static {
		return nil
	}
	return []string{r.Version.ConfigDirPrefix()}
}

// ShouldClean reports whether basename matches the rules.
func (r Rules) ShouldClean(basename string) bool {
	for _, name := range alwaysClean {
		if basename == name {
			return true
		}
	}
	if r.Static {
		return false
	}
	return basename == r.Version.StaticLibName() ||
		strings.HasPrefix(basename, r.Version.ConfigDirPrefix())
}
