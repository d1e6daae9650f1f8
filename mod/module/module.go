// Package module defines the module.Version type along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Version (for clients, a module.Version) represents a specific version
// of a native support library that takes part in a build.
type Version struct {
	Name    string // Module name, e.g. "openssl"
	Version string // Version string (e.g., "1.1.1k")
}

// String returns the "name@version" form of v.
func (v Version) String() string {
	if v.Version == "" {
		return v.Name
	}
	return v.Name + "@" + v.Version
}

// Parse splits a "name@version" argument. The version part is optional.
func Parse(arg string) (Version, error) {
	name, version, _ := strings.Cut(arg, "@")
	if name == "" {
		return Version{}, fmt.Errorf("invalid module %q: empty name", arg)
	}
	return Version{Name: name, Version: version}, nil
}

// EscapePath returns the escaped form of the given module name as a valid
// file system path. It fails if the name is invalid.
func EscapePath(name string) (escaped string, err error) {
	return filepath.Localize(name)
}
