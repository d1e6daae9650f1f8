// Package platform names the build target in the form used by archive names.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform identifies an operating system and CPU architecture.
type Platform struct {
	OS   string // linux, macos
	Arch string // x86_64, arm64, ...
}

var archNames = map[string]string{
	"amd64":   "x86_64",
	"arm64":   "arm64",
	"386":     "i686",
	"arm":     "armv7l",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
}

// Detect returns the platform pyport is running on.
func Detect() (Platform, error) {
	return FromGo(runtime.GOOS, runtime.GOARCH)
}

// FromGo maps Go's GOOS/GOARCH pair to a Platform.
func FromGo(goos, goarch string) (Platform, error) {
	var os string
	switch goos {
	case "linux":
		os = "linux"
	case "darwin":
		os = "macos"
	default:
		return Platform{}, fmt.Errorf("unsupported operating system: %s", goos)
	}
	arch, ok := archNames[goarch]
	if !ok {
		return Platform{}, fmt.Errorf("unsupported %s architecture: %s", goos, goarch)
	}
	return Platform{OS: os, Arch: arch}, nil
}

// Parse parses the "os-arch" form returned by String.
func Parse(s string) (Platform, error) {
	os, arch, ok := strings.Cut(s, "-")
	if !ok || os == "" || arch == "" {
		return Platform{}, fmt.Errorf("invalid platform %q: want os-arch", s)
	}
	if os != "linux" && os != "macos" {
		return Platform{}, fmt.Errorf("unsupported operating system: %s", os)
	}
	return Platform{OS: os, Arch: arch}, nil
}

// String returns the "os-arch" form, e.g. "linux-x86_64".
func (p Platform) String() string {
	return p.OS + "-" + p.Arch
}

// IsLinux reports whether p targets Linux.
func (p Platform) IsLinux() bool { return p.OS == "linux" }

// IsMacOS reports whether p targets macOS.
func (p Platform) IsMacOS() bool { return p.OS == "macos" }
