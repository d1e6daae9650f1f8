package finalize

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const staticLibPrefix = "libpython"

// DedupStaticLibs looks for the runtime's static library under libDir.
// When there are exactly two copies of equal size, the one with the
// shorter path is replaced by a relative symlink to the other. In every
// other case the files are left alone. It reports whether a link was
// made.
func DedupStaticLibs(libDir string) (bool, error) {
	var libs []string
	err := filepath.WalkDir(libDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == libDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() && strings.HasPrefix(d.Name(), staticLibPrefix) {
			libs = append(libs, path)
		}
		return nil
	})
	if err != nil || len(libs) != 2 {
		return false, err
	}

	shorter, longer := libs[0], libs[1]
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	si, err := os.Stat(shorter)
	if err != nil {
		return false, err
	}
	li, err := os.Stat(longer)
	if err != nil {
		return false, err
	}
	if si.Size() != li.Size() {
		return false, nil
	}

	target, err := filepath.Rel(filepath.Dir(shorter), longer)
	if err != nil {
		return false, err
	}
	if err := os.Remove(shorter); err != nil {
		return false, err
	}
	if err := os.Symlink(target, shorter); err != nil {
		return false, err
	}
	return true, nil
}
