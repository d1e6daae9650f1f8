package finalize

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Prune removes every file and directory under root whose basename
// matches rules. Removed directories are not descended into. It returns
// the removed basenames, sorted and without duplicates. Running it again
// on the same tree removes nothing.
func Prune(root string, rules Rules) ([]string, error) {
	seen := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || !rules.ShouldClean(d.Name()) {
			return nil
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
		seen[d.Name()] = true
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(seen))
	for name := range seen {
		removed = append(removed, name)
	}
	sort.Strings(removed)
	return removed, nil
}
