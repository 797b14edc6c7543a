// Package preset maps named configurations to complete state snapshots.
// A compiled-in table covers the standard views; operators can add more
// as Lua files. Presets are never partial: every resolve returns a total
// snapshot.
package preset

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/state"
)

// ErrUnknownPreset is returned for names neither compiled in nor loaded
// from a preset file. Callers surface it: an unknown name usually means a
// client/server version mismatch, not a condition to swallow.
var ErrUnknownPreset = errors.New("unknown preset")

var (
	innerBodies = []state.BodyID{"mercury", "venus", "earth", "mars"}
	outerBodies = []state.BodyID{"jupiter", "saturn", "uranus", "neptune"}
)

// Registry resolves preset names to snapshots. Built once at startup and
// read-only afterwards.
type Registry struct {
	cat     *catalog.Catalog
	presets map[string]*state.Snapshot
	log     *zap.Logger
}

// NewRegistry builds the compiled-in preset table for the given catalog.
func NewRegistry(cat *catalog.Catalog, log *zap.Logger) *Registry {
	r := &Registry{
		cat:     cat,
		presets: make(map[string]*state.Snapshot),
		log:     log,
	}
	r.presets["default"] = state.Defaults(cat.IDs())

	inner := r.base()
	r.showOnly(inner, innerBodies)
	inner.CameraPosition = state.Vec3{X: 0, Y: 10, Z: 25}
	r.presets["innerPlanets"] = inner

	outer := r.base()
	r.showOnly(outer, outerBodies)
	outer.CameraPosition = state.Vec3{X: 0, Y: 30, Z: 70}
	r.presets["outerPlanets"] = outer

	earth := r.base()
	r.showOnly(earth, []state.BodyID{"earth"})
	earth.CameraPosition = state.Vec3{X: 0, Y: 5, Z: 16}
	r.presets["earthView"] = earth

	fast := r.base()
	fast.RotationSpeed = 5.0
	r.presets["fastOrbits"] = fast

	top := r.base()
	top.CameraPosition = state.Vec3{X: 0, Y: 60, Z: 0.1}
	r.presets["topDown"] = top

	return r
}

func (r *Registry) base() *state.Snapshot {
	return state.Defaults(r.cat.IDs())
}

// showOnly hides every orbiting body except the ones listed. The sun (and
// any other non-orbiting body) stays visible: every preset keeps the scene
// anchored.
func (r *Registry) showOnly(s *state.Snapshot, keep []state.BodyID) {
	kept := make(map[state.BodyID]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	for _, id := range r.cat.IDs() {
		e := r.cat.Get(id)
		bs := s.Bodies[id]
		_, k := kept[id]
		bs.Visible = k || !e.Orbits()
		s.Bodies[id] = bs
	}
}

// Resolve returns a copy of the named preset's snapshot.
func (r *Registry) Resolve(name string) (*state.Snapshot, error) {
	p, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p.Clone(), nil
}

// Has reports whether name resolves.
func (r *Registry) Has(name string) bool {
	_, ok := r.presets[name]
	return ok
}

// Names returns all preset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for n := range r.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// add registers a loaded preset. Compiled-in names win on collision.
func (r *Registry) add(name string, s *state.Snapshot) {
	if _, exists := r.presets[name]; exists {
		r.log.Warn("preset file shadows existing preset, keeping original",
			zap.String("preset", name))
		return
	}
	s.Normalize(r.cat.IDs())
	r.presets[name] = s
}
