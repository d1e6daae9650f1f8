// Copyright 2024 The pyport Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package modules declares the catalog of optional native libraries a
// CPython build can link, decides which of them take part in a build, and
// builds the enabled ones into a shared dependency prefix.
package modules

import (
	"errors"
	"fmt"
)

// ErrUnknownModule is returned when a name does not match any catalog entry.
var ErrUnknownModule = errors.New("unknown module")

// Kind enumerates the optional modules. The declaration order is the build
// order: a module only requires kinds declared before it.
type Kind int

const (
	Zlib Kind = iota
	Bzip2
	Xz
	LibFFI
	Openssl
	Uuid
	Readline
	Sqlite
	Gdbm
	Bdb
	Tcl
	Tk
	Tix

	numKinds
)

var kindNames = [numKinds]string{
	Zlib:     "zlib",
	Bzip2:    "bzip2",
	Xz:       "xz",
	LibFFI:   "libffi",
	Openssl:  "openssl",
	Uuid:     "uuid",
	Readline: "readline",
	Sqlite:   "sqlite",
	Gdbm:     "gdbm",
	Bdb:      "bdb",
	Tcl:      "tcl",
	Tk:       "tk",
	Tix:      "tix",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Descriptor declares one optional native capability and its build recipe.
type Descriptor struct {
	Kind           Kind
	Name           string
	DefaultVersion string
	Requires       []Kind
	OS             []string // platforms the module is built on; empty means all
	HeaderSubdir   string   // nested include dir the module installs headers into
	TLS            bool     // provides TLS to the interpreter (enables ensurepip upgrade)
	Toolkit        bool     // provides the Tcl/Tk toolkit include/lib pair
	Recipe         Recipe
}

// SupportedOn reports whether the module is built for the given OS.
func (d Descriptor) SupportedOn(os string) bool {
	if len(d.OS) == 0 {
		return true
	}
	for _, o := range d.OS {
		if o == os {
			return true
		}
	}
	return false
}

var catalog = [numKinds]Descriptor{
	Zlib: {
		Name:           "zlib",
		DefaultVersion: "1.2.11",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://zlib.net/fossils/zlib-%[1]s.tar.gz"),
			args: staticArgs("--static"),
		},
	},
	Bzip2: {
		Name:           "bzip2",
		DefaultVersion: "1.0.8",
		Recipe: &makeRecipe{
			url: urlf("https://sourceware.org/pub/bzip2/bzip2-%[1]s.tar.gz"),
		},
	},
	Xz: {
		Name:           "xz",
		DefaultVersion: "5.2.5",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://tukaani.org/xz/xz-%[1]s.tar.gz"),
			args: staticArgs("--enable-shared=no", "--enable-static=yes", "--disable-doc", "--disable-xz", "--disable-xzdec", "--disable-lzmadec", "--disable-lzmainfo", "--disable-lzma-links", "--disable-scripts"),
		},
	},
	LibFFI: {
		Name:           "libffi",
		DefaultVersion: "3.3",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://github.com/libffi/libffi/releases/download/v%[1]s/libffi-%[1]s.tar.gz"),
			args: staticArgs("--enable-shared=no", "--enable-static=yes", "--disable-multi-os-directory", "--disable-docs"),
		},
	},
	Openssl: {
		Name:           "openssl",
		DefaultVersion: "1.1.1k",
		HeaderSubdir:   "openssl",
		TLS:            true,
		Recipe: &autotoolsRecipe{
			url:     urlf("https://www.openssl.org/source/openssl-%[1]s.tar.gz"),
			script:  "config",
			args:    opensslArgs,
			install: "install_sw",
		},
	},
	Uuid: {
		Name:           "uuid",
		DefaultVersion: "1.0.3",
		OS:             []string{"linux"},
		HeaderSubdir:   "uuid",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://sourceforge.net/projects/libuuid/files/libuuid-%[1]s.tar.gz"),
			args: staticArgs("--enable-shared=no", "--enable-static=yes"),
		},
	},
	Readline: {
		Name:           "readline",
		DefaultVersion: "8.1",
		HeaderSubdir:   "readline",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://ftp.gnu.org/gnu/readline/readline-%[1]s.tar.gz"),
			args: staticArgs("--enable-shared=no", "--enable-static=yes", "--with-curses"),
		},
	},
	Sqlite: {
		Name:           "sqlite",
		DefaultVersion: "3.35.5",
		Recipe: &autotoolsRecipe{
			url:  sqliteURL,
			args: staticArgs("--enable-shared=no", "--enable-static=yes", "--disable-tcl", "--disable-readline"),
		},
	},
	Gdbm: {
		Name:           "gdbm",
		DefaultVersion: "1.18.1",
		Recipe: &autotoolsRecipe{
			url:  urlf("https://ftp.gnu.org/gnu/gdbm/gdbm-%[1]s.tar.gz"),
			args: staticArgs("--enable-shared=no", "--enable-static=yes", "--with-pic=yes", "--enable-libgdbm-compat", "--disable-dependency-tracking", "--disable-nls", "--without-readline"),
		},
	},
	Bdb: {
		Name:           "bdb",
		DefaultVersion: "6.2.32",
		Recipe: &autotoolsRecipe{
			url:      urlf("https://ftp.osuosl.org/pub/blfs/conglomeration/db/db-%[1]s.tar.gz"),
			script:   "dist/configure",
			buildDir: "build_unix",
			args:     staticArgs("--enable-shared=no", "--enable-static=yes", "--enable-dbm", "--with-pic=yes"),
		},
	},
	Tcl: {
		Name:           "tcl",
		DefaultVersion: "8.6.10",
		Toolkit:        true,
		Recipe: &autotoolsRecipe{
			url:        urlf("https://prdownloads.sourceforge.net/tcl/tcl%[1]s-src.tar.gz"),
			script:     "unix/configure",
			buildDir:   "unix",
			destDirVar: "INSTALL_ROOT",
			args:       staticArgs("--enable-shared=no", "--enable-threads"),
		},
	},
	Tk: {
		Name:           "tk",
		DefaultVersion: "8.6.10",
		Requires:       []Kind{Tcl},
		Recipe: &autotoolsRecipe{
			url:        urlf("https://prdownloads.sourceforge.net/tcl/tk%[1]s-src.tar.gz"),
			script:     "unix/configure",
			buildDir:   "unix",
			destDirVar: "INSTALL_ROOT",
			args:       withTcl("--enable-shared=no", "--enable-threads", "--without-x"),
		},
	},
	Tix: {
		Name:           "tix",
		DefaultVersion: "8.4.3",
		Requires:       []Kind{Tcl, Tk},
		Recipe: &autotoolsRecipe{
			url:  urlf("https://sourceforge.net/projects/tix/files/tix/%[1]s/Tix%[1]s-src.tar.gz"),
			args: withTk("--enable-shared=no"),
		},
	},
}

func init() {
	for k := range catalog {
		catalog[k].Kind = Kind(k)
	}
}

// Catalog returns every descriptor in build order.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog[:])
	return out
}

// Get returns the descriptor of k.
func Get(k Kind) Descriptor {
	return catalog[k]
}

// Lookup finds a descriptor by name.
func Lookup(name string) (Descriptor, error) {
	for _, d := range catalog {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownModule, name)
}

// Names returns every module name in build order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, d := range catalog {
		names[i] = d.Name
	}
	return names
}
