// Package versions parses module version pin files.
//
// A pin file overrides the default version a module is built at:
//
//	[modules]
//	openssl = "1.1.1w"
//	sqlite = "3.35.5"
package versions

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/goplus/pyport/mod/module"
)

// Versions represents a version pin file.
type Versions struct {
	Modules map[string]string `toml:"modules"` // Map of module name to pinned version
}

// Parse reads and parses a pin file from either provided data or a file path.
// If data is non-nil, it is used directly and the file parameter is ignored.
// Otherwise, the file is read from the provided path.
func Parse(file string, data []byte) (*Versions, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var v Versions
	if _, err := toml.NewDecoder(reader).Decode(&v); err != nil {
		return nil, err
	}

	return &v, nil
}

// List returns the pins sorted by module name.
func (v *Versions) List() []module.Version {
	out := make([]module.Version, 0, len(v.Modules))
	for name, ver := range v.Modules {
		out = append(out, module.Version{Name: name, Version: ver})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
