package build

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dist directory layout:
//
//	distDir/
//	  cpython-<version>-<platform>[-static].tar.<gz|xz>       # the distribution
//	  cpython-<version>-<platform>[-static].tar.<gz|xz>.yml   # its manifest
const manifestExt = ".yml"

// Manifest describes one produced archive.
type Manifest struct {
	Python    string    `yaml:"python"`
	Platform  string    `yaml:"platform"`
	Static    bool      `yaml:"static"`
	Archive   string    `yaml:"archive"`
	Digest    string    `yaml:"digest"`
	Main      string    `yaml:"main"`
	Modules   []string  `yaml:"modules,omitempty"` // name@version
	Removed   []string  `yaml:"removed,omitempty"`
	BuildTime time.Time `yaml:"build_time"`
}

// ManifestPath returns the manifest written next to archive.
func ManifestPath(archive string) string {
	return archive + manifestExt
}

// ReadManifest loads a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
