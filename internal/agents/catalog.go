package agents

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the ordered registry of analysis tasks.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// Category groups tasks that run together.
type Category struct {
	Name       string       `yaml:"name"`
	Sequential bool         `yaml:"sequential"`
	Tasks      []Definition `yaml:"tasks"`
}

// Definition describes one named analysis task.
type Definition struct {
	Name        string         `yaml:"name"`
	Category    string         `yaml:"-"`
	Factor      string         `yaml:"factor"`
	Temperature float64        `yaml:"temperature"`
	Rubric      string         `yaml:"rubric"`
	Confidence  ConfidenceRule `yaml:"confidence"`
}

// ConfidenceRule maps the magnitude of a statistics gap to a confidence:
// clamp(base + scale*|gap|, min, max).
type ConfidenceRule struct {
	Base  float64 `yaml:"base"`
	Scale float64 `yaml:"scale"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
}

// Apply computes the confidence for a statistics gap.
func (r ConfidenceRule) Apply(gap float64) float64 {
	if gap < 0 {
		gap = -gap
	}
	return clamp(r.Base+r.Scale*gap, r.Min, r.Max)
}

// DefaultCatalog parses the embedded catalog. It panics on a malformed
// embedded file since that can only happen at build time.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("agents: parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	for ci := range c.Categories {
		cat := &c.Categories[ci]
		if cat.Name == "" {
			return nil, fmt.Errorf("agents: category %d has no name", ci)
		}
		if len(cat.Tasks) == 0 {
			return nil, fmt.Errorf("agents: category %q has no tasks", cat.Name)
		}
		for ti := range cat.Tasks {
			def := &cat.Tasks[ti]
			def.Category = cat.Name
			if def.Name == "" || def.Factor == "" {
				return nil, fmt.Errorf("agents: task %d in %q needs name and factor", ti, cat.Name)
			}
			if seen[def.Name] {
				return nil, fmt.Errorf("agents: duplicate task %q", def.Name)
			}
			seen[def.Name] = true
			if def.Temperature < 0 || def.Temperature > 1 {
				return nil, fmt.Errorf("agents: task %q temperature %.2f out of range", def.Name, def.Temperature)
			}
			if r := def.Confidence; r.Min < 0 || r.Max > 1 || r.Min > r.Max {
				return nil, fmt.Errorf("agents: task %q has invalid confidence bounds", def.Name)
			}
		}
	}
	return &c, nil
}

// Tasks returns all definitions in catalog order.
func (c *Catalog) Tasks() []Definition {
	var out []Definition
	for _, cat := range c.Categories {
		out = append(out, cat.Tasks...)
	}
	return out
}

// Lookup finds a task definition by name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	for _, cat := range c.Categories {
		for _, def := range cat.Tasks {
			if def.Name == name {
				return def, true
			}
		}
	}
	return Definition{}, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
