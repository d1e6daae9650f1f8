package finalize

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// disposableTools are bin/ helpers that are removed outright; pip can
// reinstall them.
var disposableTools = []string{"2to3", "easy_install", "idle3", "pip", "pydoc", "wheel"}

// NormalizeExecutables cleans binDir: disposable helper tools are
// deleted, a "python" symlink to main is created when missing, and every
// other regular file gets its shebang rewritten. It returns the names of
// the rewritten files.
func NormalizeExecutables(binDir, main string) ([]string, error) {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil, err
	}

	var files []string
	hasGeneric := false
	for _, e := range entries {
		name := e.Name()
		if isDisposable(name) {
			if err := os.RemoveAll(filepath.Join(binDir, name)); err != nil {
				return nil, err
			}
			continue
		}
		if name == "python" {
			hasGeneric = true
		}
		if e.Type().IsRegular() {
			files = append(files, name)
		}
	}

	if !hasGeneric && main != "python" {
		if err := os.Symlink(main, filepath.Join(binDir, "python")); err != nil {
			return nil, err
		}
	}

	var rewritten []string
	for _, name := range files {
		if name == main {
			continue
		}
		ok, err := RewriteShebang(filepath.Join(binDir, name), main)
		if err != nil {
			return rewritten, err
		}
		if ok {
			rewritten = append(rewritten, name)
		}
	}
	return rewritten, nil
}

func isDisposable(name string) bool {
	for _, p := range disposableTools {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Shebang returns the replacement header that runs main from the
// script's own directory.
func Shebang(main string) string {
	return fmt.Sprintf("#!/bin/sh\n\"exec\" \"$(dirname $0)/%s\" \"$0\" \"$@\"\n", main)
}

// RewriteShebang replaces a "#!.../bin/python..." first line of path with
// a relocatable header that execs main from the script's directory. Files
// whose first line is anything else are not modified. It reports whether
// the file was rewritten.
func RewriteShebang(path, main string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if magic, err := r.Peek(2); err != nil || !bytes.Equal(magic, []byte("#!")) {
		return false, nil
	}
	first, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	if !strings.Contains(first, "bin/python") {
		return false, nil
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		return false, err
	}
	fi, err := f.Stat()
	if err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".shebang-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(Shebang(main)); err != nil {
		tmp.Close()
		return false, err
	}
	if _, err := tmp.Write(rest); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Chmod(fi.Mode().Perm()); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, err
	}
	return true, nil
}
