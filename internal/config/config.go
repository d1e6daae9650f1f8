// Package config loads the pyport build configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/modules"
	"github.com/goplus/pyport/internal/platform"
	"github.com/goplus/pyport/internal/pyver"
	"github.com/goplus/pyport/mod/module"
	"github.com/goplus/pyport/mod/versions"
	"gopkg.in/yaml.v3"
)

// DefaultPythonURL is where CPython source tarballs are downloaded from.
const DefaultPythonURL = "https://www.python.org/ftp/python"

// Config holds one build's settings.
type Config struct {
	Version     string  `yaml:"version"`
	Static      bool    `yaml:"static"`
	Modules     Modules `yaml:"modules"`
	Jobs        int     `yaml:"jobs"`
	ModuleJobs  int     `yaml:"module_jobs"`
	BuildDir    string  `yaml:"build_dir"`
	DistDir     string  `yaml:"dist_dir"`
	PythonURL   string  `yaml:"python_url"`
	Compression string  `yaml:"compression"`
	Compile     bool    `yaml:"compile"`
	Pins        string  `yaml:"pins"`
	LogLevel    string  `yaml:"log_level"`
	Target      string  `yaml:"target"`
}

// Modules configures the optional module policy.
type Modules struct {
	Select     Selection         `yaml:"select"`
	Exclude    []string          `yaml:"exclude"`
	BestEffort []string          `yaml:"best_effort"`
	Versions   map[string]string `yaml:"versions"`
}

// Selection is a list of module names. In YAML it may also be written as
// a single keyword such as "all" or "none".
type Selection []string

func (s *Selection) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = Selection{value.Value}
		return nil
	}
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	*s = names
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Modules:     Modules{Select: Selection{modules.SelectAll}},
		Jobs:        runtime.NumCPU(),
		ModuleJobs:  1,
		DistDir:     "dist",
		PythonURL:   DefaultPythonURL,
		Compression: "gz",
		LogLevel:    "info",
	}
}

// Load reads path on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that can be checked without touching the
// network or the build tree.
func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("no CPython version given")
	}
	if _, err := pyver.Parse(c.Version); err != nil {
		return err
	}
	switch c.Compression {
	case "gz", "xz":
	default:
		return fmt.Errorf("compression %q: want gz or xz", c.Compression)
	}
	if c.Jobs < 1 || c.ModuleJobs < 1 {
		return fmt.Errorf("jobs must be at least 1")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Target != "" {
		if _, err := platform.Parse(c.Target); err != nil {
			return err
		}
	}
	p := c.Policy(platform.Platform{})
	return p.Validate()
}

// PythonVersion returns the parsed CPython version.
func (c *Config) PythonVersion() (pyver.Version, error) {
	return pyver.Parse(c.Version)
}

// Platform returns the build target, defaulting to the host.
func (c *Config) Platform() (platform.Platform, error) {
	if c.Target == "" {
		return platform.Detect()
	}
	return platform.Parse(c.Target)
}

// Level returns the configured log level.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Policy returns the module policy for the target platform.
func (c *Config) Policy(p platform.Platform) *modules.Policy {
	return &modules.Policy{
		Select:     c.Modules.Select,
		Exclude:    c.Modules.Exclude,
		BestEffort: c.Modules.BestEffort,
		Versions:   c.Modules.Versions,
		Platform:   p,
	}
}

// Pin records a module version pin, overriding earlier ones.
func (c *Config) Pin(v module.Version) {
	if c.Modules.Versions == nil {
		c.Modules.Versions = make(map[string]string)
	}
	c.Modules.Versions[v.Name] = v.Version
}

// LoadPins merges the TOML pins file named by Pins. Pins already set in
// the config win over the file.
func (c *Config) LoadPins() error {
	if c.Pins == "" {
		return nil
	}
	data, err := os.ReadFile(c.Pins)
	if err != nil {
		return fmt.Errorf("reading pins: %w", err)
	}
	vers, err := versions.Parse(c.Pins, data)
	if err != nil {
		return err
	}
	for _, v := range vers.List() {
		if _, ok := c.Modules.Versions[v.Name]; !ok {
			c.Pin(v)
		}
	}
	return nil
}
