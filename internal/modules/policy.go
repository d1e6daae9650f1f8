package modules

import (
	"fmt"

	"github.com/goplus/pyport/internal/platform"
)

// Selection keywords accepted in Policy.Select.
const (
	SelectAll  = "all"
	SelectNone = "none"
)

// Policy decides which catalog modules take part in a build.
type Policy struct {
	// Select lists the modules to build. Empty or "all" selects every
	// module; "none" selects nothing. Explicitly selected modules pull
	// in their requirements.
	Select []string
	// Exclude wins over Select and over requirements.
	Exclude []string
	// BestEffort modules may fail without failing the build.
	BestEffort []string
	// Versions pins module versions by name.
	Versions map[string]string
	Platform platform.Platform
}

// Decision is the outcome of Plan for one module.
type Decision struct {
	Descriptor
	Version    string
	Enabled    bool
	BestEffort bool
	Reason     string
}

// Validate reports names that do not match a catalog entry.
func (p *Policy) Validate() error {
	check := func(field string, names []string, keywords bool) error {
		for _, name := range names {
			if keywords && (name == SelectAll || name == SelectNone) {
				continue
			}
			if _, err := Lookup(name); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
		return nil
	}
	if err := check("select", p.Select, true); err != nil {
		return err
	}
	if err := check("exclude", p.Exclude, false); err != nil {
		return err
	}
	if err := check("best_effort", p.BestEffort, false); err != nil {
		return err
	}
	for name := range p.Versions {
		if _, err := Lookup(name); err != nil {
			return fmt.Errorf("pins: %w", err)
		}
	}
	return nil
}

// Version returns the pinned version of d, or its default.
func (p *Policy) Version(d Descriptor) string {
	if v := p.Versions[d.Name]; v != "" {
		return v
	}
	return d.DefaultVersion
}

// Plan returns one decision per catalog module, in build order.
func (p *Policy) Plan() []Decision {
	excluded := set(p.Exclude)
	bestEffort := set(p.BestEffort)

	var selected [numKinds]bool
	var reason [numKinds]string
	all := len(p.Select) == 0
	for _, name := range p.Select {
		switch name {
		case SelectAll:
			all = true
		case SelectNone:
		default:
			if d, err := Lookup(name); err == nil {
				selected[d.Kind] = true
				reason[d.Kind] = "selected"
			}
		}
	}
	if all {
		for k := range selected {
			selected[k] = true
			reason[k] = "selected"
		}
	}
	// Requirements precede their dependents, so one reverse pass is
	// enough to pull in transitive requirements.
	for k := numKinds - 1; k >= 0; k-- {
		if !selected[k] {
			continue
		}
		for _, req := range catalog[k].Requires {
			if !selected[req] {
				selected[req] = true
				reason[req] = "required by " + catalog[k].Name
			}
		}
	}

	out := make([]Decision, numKinds)
	for k, d := range catalog {
		dec := Decision{
			Descriptor: d,
			Version:    p.Version(d),
			BestEffort: bestEffort[d.Name],
		}
		switch {
		case excluded[d.Name]:
			dec.Reason = "excluded"
		case !selected[k]:
			dec.Reason = "not selected"
		case !d.SupportedOn(p.Platform.OS):
			dec.Reason = "unsupported on " + p.Platform.OS
		default:
			dec.Enabled = true
			dec.Reason = reason[k]
			for _, req := range d.Requires {
				if !out[req].Enabled {
					dec.Enabled = false
					dec.Reason = "requires " + catalog[req].Name
					break
				}
			}
		}
		out[k] = dec
	}
	return out
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Decide returns the plan entry for one module.
func (p *Policy) Decide(k Kind) Decision {
	return p.Plan()[k]
}
