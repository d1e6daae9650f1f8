package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the per-user pyport work directory, creating it if needed.
// PYPORT_HOME overrides the default location.
func WorkDir() (string, error) {
	dir := os.Getenv("PYPORT_HOME")
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(userCacheDir, ".pyport")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// DownloadDir returns the directory where fetched source tarballs are kept.
func DownloadDir() (string, error) {
	work, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(work, "downloads")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
