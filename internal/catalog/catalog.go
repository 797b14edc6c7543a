// Package catalog holds the static descriptive data for every body the
// engine can render. Entries are compiled in (embedded YAML), loaded once
// at startup, and never mutated afterwards.
package catalog

import (
	"embed"
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"

	"github.com/orrery/orrery/internal/state"
)

//go:embed bodies.yaml
var bodiesFS embed.FS

// Entry is the immutable static descriptor for one body.
type Entry struct {
	ID          state.BodyID `yaml:"id"`
	DisplayName string       `yaml:"display_name"`
	Symbol      string       `yaml:"symbol"`
	Color       string       `yaml:"color"` // "#rrggbb"
	BaseRadius  float32      `yaml:"base_radius"`
	// OrbitalRadiusUnits is the orbit radius in world units. 0 means the
	// body sits at the origin and does not revolve (the sun).
	OrbitalRadiusUnits float32 `yaml:"orbital_radius_units"`
	// OrbitalPeriodUnits scales revolution speed: larger period, slower
	// revolution. 0 together with a zero orbit radius marks a non-orbiting
	// body.
	OrbitalPeriodUnits float32 `yaml:"orbital_period_units"`
	// Ring marks bodies that carry a ring sub-mesh (saturn). Kept as data
	// so special-casing stays a branch on the entry, not a type hierarchy.
	Ring      bool    `yaml:"ring"`
	RingInner float32 `yaml:"ring_inner"`
	RingOuter float32 `yaml:"ring_outer"`
}

// Orbits reports whether the body revolves around the origin.
func (e *Entry) Orbits() bool {
	return e.OrbitalRadiusUnits > 0 && e.OrbitalPeriodUnits > 0
}

// RGBA parses the entry's hex color. Validated at load time, so this
// cannot fail afterwards.
func (e *Entry) RGBA() color.RGBA {
	c, _ := parseHexColor(e.Color)
	return c
}

type bodyListFile struct {
	Bodies []Entry `yaml:"bodies"`
}

// Catalog is the loaded, immutable body registry.
type Catalog struct {
	entries map[state.BodyID]*Entry
	order   []state.BodyID
}

// Load parses and validates the embedded body table. Any malformed entry
// is a fatal configuration error: no partial catalog is ever returned.
func Load() (*Catalog, error) {
	raw, err := bodiesFS.ReadFile("bodies.yaml")
	if err != nil {
		return nil, fmt.Errorf("read body table: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var f bodyListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse body table: %w", err)
	}
	if len(f.Bodies) == 0 {
		return nil, fmt.Errorf("body table is empty")
	}
	c := &Catalog{
		entries: make(map[state.BodyID]*Entry, len(f.Bodies)),
		order:   make([]state.BodyID, 0, len(f.Bodies)),
	}
	for i := range f.Bodies {
		e := &f.Bodies[i]
		if e.ID == "" {
			return nil, fmt.Errorf("body #%d: missing id", i)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("body %q: duplicate id", e.ID)
		}
		if e.BaseRadius <= 0 {
			return nil, fmt.Errorf("body %q: base_radius must be > 0, got %v", e.ID, e.BaseRadius)
		}
		if _, err := parseHexColor(e.Color); err != nil {
			return nil, fmt.Errorf("body %q: %w", e.ID, err)
		}
		if e.Ring && (e.RingInner <= 0 || e.RingOuter <= e.RingInner) {
			return nil, fmt.Errorf("body %q: ring radii must satisfy 0 < inner < outer", e.ID)
		}
		c.entries[e.ID] = e
		c.order = append(c.order, e.ID)
	}
	return c, nil
}

// Get returns the entry for id, or nil if the id is not in the catalog.
func (c *Catalog) Get(id state.BodyID) *Entry {
	return c.entries[id]
}

// Has reports whether id is a known body.
func (c *Catalog) Has(id state.BodyID) bool {
	_, ok := c.entries[id]
	return ok
}

// IDs returns body ids in table order. The returned slice is shared;
// callers must not modify it.
func (c *Catalog) IDs() []state.BodyID {
	return c.order
}

// Count returns the number of bodies.
func (c *Catalog) Count() int {
	return len(c.entries)
}

func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %v", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
