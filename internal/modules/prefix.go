package modules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrPathClaimed is returned when a module installs a file another module
// already placed in the shared prefix.
var ErrPathClaimed = errors.New("path already claimed")

// Prefix is the shared install root every module is merged into. It
// remembers which module owns each file so that two modules never
// silently overwrite each other.
type Prefix struct {
	Root string

	mu     sync.Mutex
	owners map[string]string
}

// NewPrefix returns a Prefix rooted at root.
func NewPrefix(root string) *Prefix {
	return &Prefix{Root: root, owners: make(map[string]string)}
}

// IncludeDir is the header directory of the prefix.
func (p *Prefix) IncludeDir() string { return filepath.Join(p.Root, "include") }

// LibDir is the library directory of the prefix.
func (p *Prefix) LibDir() string { return filepath.Join(p.Root, "lib") }

// Owner returns the module that installed rel, a slash separated path
// relative to Root.
func (p *Prefix) Owner(rel string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.owners[rel]
	return m, ok
}

// Merge moves every file under stage into the prefix on behalf of module
// and returns the relative paths it claimed, sorted. Nothing is moved if
// any path is already present.
func (p *Prefix) Merge(module, stage string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var dirs, files []string
	err := filepath.WalkDir(stage, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == stage {
			return nil
		}
		rel, err := filepath.Rel(stage, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, rel)
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, rel := range files {
		key := filepath.ToSlash(rel)
		if owner, ok := p.owners[key]; ok {
			return nil, fmt.Errorf("%s: %w by %s", key, ErrPathClaimed, owner)
		}
		if _, err := os.Lstat(filepath.Join(p.Root, rel)); err == nil {
			return nil, fmt.Errorf("%s: %w", key, ErrPathClaimed)
		}
	}

	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return nil, err
	}
	for _, rel := range dirs {
		if err := os.MkdirAll(filepath.Join(p.Root, rel), 0o755); err != nil {
			return nil, err
		}
	}
	claimed := make([]string, 0, len(files))
	for _, rel := range files {
		if err := os.Rename(filepath.Join(stage, rel), filepath.Join(p.Root, rel)); err != nil {
			return nil, err
		}
		key := filepath.ToSlash(rel)
		p.owners[key] = module
		claimed = append(claimed, key)
	}
	sort.Strings(claimed)
	return claimed, nil
}
