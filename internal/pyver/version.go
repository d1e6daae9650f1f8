// Package pyver implements CPython version numbers as builds use them.
package pyver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned when a version string is not major.minor.patch.
var ErrInvalidVersion = errors.New("invalid version")

// Version is an immutable major.minor.patch identifier.
type Version struct {
	major, minor, patch int
}

// Parse parses a version string such as "3.11.4".
// Prerelease and build suffixes are rejected.
func Parse(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(s, ".")
	if len(parts) != 3 || !semver.IsValid("v"+s) || semver.Prerelease("v"+s) != "" || semver.Build("v"+s) != "" {
		return Version{}, fmt.Errorf("%w %q: want major.minor.patch", ErrInvalidVersion, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, s, err)
		}
		nums[i] = n
	}
	return Version{major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) Major() int { return v.major }
func (v Version) Minor() int { return v.minor }
func (v Version) Patch() int { return v.patch }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v == Version{} }

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// MajorMinor returns the "3.11" form used in ABI-sensitive file names.
func (v Version) MajorMinor() string {
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

// Compare returns -1, 0 or +1 following semver precedence.
func (v Version) Compare(other Version) int {
	return semver.Compare("v"+v.String(), "v"+other.String())
}

// StaticLibName is the per-minor static runtime library, e.g. "libpython3.11.a".
func (v Version) StaticLibName() string {
	return "libpython" + v.MajorMinor() + ".a"
}

// ConfigDirPrefix is the prefix of the per-minor config directory,
// e.g. "config-3.11-" for "config-3.11-x86_64-linux-gnu".
func (v Version) ConfigDirPrefix() string {
	return "config-" + v.MajorMinor() + "-"
}
