// Package compose derives compiler flags and configure arguments for the
// CPython build from the modules that were built into the shared prefix.
package compose

import (
	"path/filepath"
	"strings"

	"github.com/goplus/pyport/internal/modules"
	"github.com/goplus/pyport/internal/pyver"
)

// Resolved reports which optional modules were built.
type Resolved interface {
	Has(k modules.Kind) bool
}

// Options selects the build variant.
type Options struct {
	Static bool
}

// Environment is the composed build environment. Every slice is in a
// fixed order for a given input.
type Environment struct {
	CFlags        []string
	CPPFlags      []string
	LDFlags       []string
	PkgConfigPath string
	ConfigureArgs []string
}

// Var is one environment variable.
type Var struct {
	Name  string
	Value string
}

// Vars returns the variables to export to configure and make.
func (e Environment) Vars() []Var {
	return []Var{
		{"CFLAGS", strings.Join(e.CFlags, " ")},
		{"CPPFLAGS", strings.Join(e.CPPFlags, " ")},
		{"LDFLAGS", strings.Join(e.LDFlags, " ")},
		{"PKG_CONFIG_PATH", e.PkgConfigPath},
	}
}

// Map returns Vars as a map.
func (e Environment) Map() map[string]string {
	m := make(map[string]string, 4)
	for _, v := range e.Vars() {
		m[v.Name] = v.Value
	}
	return m
}

// Compose builds the environment for prefix and the resolved modules.
// It touches neither the filesystem nor the process environment.
func Compose(prefix string, set Resolved, v pyver.Version, opts Options) Environment {
	include := filepath.Join(prefix, "include")
	lib := filepath.Join(prefix, "lib")

	includes := []string{"-I" + include}
	for _, d := range modules.Catalog() {
		if d.HeaderSubdir != "" && set.Has(d.Kind) {
			includes = append(includes, "-I"+filepath.Join(include, d.HeaderSubdir))
		}
	}

	env := Environment{
		CFlags:        append([]string{"-Wno-unused-command-line-argument"}, includes...),
		CPPFlags:      includes,
		LDFlags:       []string{"-L" + lib},
		PkgConfigPath: filepath.Join(lib, "pkgconfig"),
	}

	var tls, toolkit bool
	for _, d := range modules.Catalog() {
		if !set.Has(d.Kind) {
			continue
		}
		tls = tls || d.TLS
		toolkit = toolkit || d.Toolkit
	}

	args := make([]string, 0, 8)
	if opts.Static {
		args = append(args, "--disable-shared")
	} else {
		args = append(args, "--enable-shared")
	}
	if tls {
		args = append(args, "--with-ensurepip=upgrade")
	} else {
		args = append(args, "--with-ensurepip=install")
	}
	args = append(args, "--enable-optimizations", "--with-lto")
	if tls && v.Compare(pyver.MustParse("3.7.0")) >= 0 {
		args = append(args, "--with-openssl="+prefix)
	}
	if toolkit {
		args = append(args,
			"--with-tcltk-includes=-I"+include,
			"--with-tcltk-libs=-L"+lib,
		)
	}
	env.ConfigureArgs = args
	return env
}
