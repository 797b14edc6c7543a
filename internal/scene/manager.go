// Package scene owns the live, GPU-backed projection of the shared state
// snapshot: construction of every renderable object, in-place mutation on
// state changes, and deterministic disposal.
package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/event"
	"github.com/orrery/orrery/internal/render"
	"github.com/orrery/orrery/internal/state"
)

// Manager owns the render surface, camera, controls and the constructed
// scene objects. All mutation operations work on already-built handles;
// nothing short of Destroy tears the scene down.
//
// The manager is not safe for concurrent use. Everything that touches it
// runs on the loop goroutine (the sync client and UI post closures there),
// mirroring the single event-loop model the scene was designed for.
type Manager struct {
	dev     render.Device
	cat     *catalog.Catalog
	factory *Factory
	bus     *event.Bus
	log     *zap.Logger

	handles      map[state.BodyID]*Handle
	stars        *Starfield
	starsVisible bool
	camera       *Camera
	controls     *Controls

	// snap is the last applied configuration; the handles above are its
	// projection. Never handed out without cloning.
	snap      *state.Snapshot
	destroyed bool
}

// Options tunes scene construction.
type Options struct {
	// StarfieldCount is the number of background stars. Zero disables the
	// starfield.
	StarfieldCount int
	// Initial is the starting snapshot. Nil means compiled-in defaults;
	// either way the first authoritative fetch overwrites it.
	Initial *state.Snapshot
}

// NewManager constructs every scene object for the catalog. A build
// failure disposes whatever was already allocated: no partial scene is
// ever returned.
func NewManager(dev render.Device, cat *catalog.Catalog, bus *event.Bus, log *zap.Logger, opts Options) (*Manager, error) {
	snap := opts.Initial
	if snap == nil {
		snap = state.Defaults(cat.IDs())
	} else {
		snap = snap.Clone()
		snap.Normalize(cat.IDs())
	}

	cam := &Camera{Position: snap.CameraPosition}
	m := &Manager{
		dev:      dev,
		cat:      cat,
		factory:  NewFactory(dev, log),
		bus:      bus,
		log:      log,
		handles:  make(map[state.BodyID]*Handle, cat.Count()),
		camera:   cam,
		controls: newControls(cam),
		snap:     snap,
	}

	for _, id := range cat.IDs() {
		h, err := m.factory.BuildBody(cat.Get(id), snap.Bodies[id])
		if err != nil {
			m.Destroy()
			return nil, fmt.Errorf("build %q: %w", id, err)
		}
		h.OrbitVisible = snap.ShowOrbits
		h.LabelVisible = snap.ShowLabels
		m.handles[id] = h
	}
	if opts.StarfieldCount > 0 {
		m.stars = m.factory.BuildStarfield(opts.StarfieldCount)
	}
	m.starsVisible = !snap.ShowBackgroundVideo
	return m, nil
}

// SetVisibility toggles a body's visibility flag in place.
func (m *Manager) SetVisibility(id state.BodyID, visible bool) {
	h := m.handle(id, "set visibility")
	if h == nil || h.Visible == visible {
		return
	}
	h.Visible = visible
	bs := m.snap.Bodies[id]
	bs.Visible = visible
	m.snap.Bodies[id] = bs
}

// SetScale replaces the body's geometry with a newly sized one, releasing
// the old geometry immediately. Ring geometry resizes with it and the
// label offset tracks the new radius.
func (m *Manager) SetScale(id state.BodyID, scale float32) {
	h := m.handle(id, "set scale")
	if h == nil {
		return
	}
	if scale <= 0 {
		m.log.Warn("ignoring non-positive scale",
			zap.String("body", string(id)), zap.Float32("scale", scale))
		return
	}
	if h.Scale == scale {
		return
	}
	m.factory.RebuildGeometry(h, scale)
	bs := m.snap.Bodies[id]
	bs.Scale = scale
	m.snap.Bodies[id] = bs
}

// SetOrbitsVisible toggles every orbit-path line.
func (m *Manager) SetOrbitsVisible(visible bool) {
	if m.destroyed || m.snap.ShowOrbits == visible {
		return
	}
	// The flag is carried on every handle, orbit geometry or not, so it
	// always mirrors the seed in NewManager. On bodies without an orbit
	// path it is inert.
	for _, h := range m.handles {
		h.OrbitVisible = visible
	}
	m.snap.ShowOrbits = visible
}

// SetLabelsVisible toggles every body label.
func (m *Manager) SetLabelsVisible(visible bool) {
	if m.destroyed || m.snap.ShowLabels == visible {
		return
	}
	for _, h := range m.handles {
		h.LabelVisible = visible
	}
	m.snap.ShowLabels = visible
}

// SetRotationSpeed sets the global animation speed multiplier.
func (m *Manager) SetRotationSpeed(speed float32) {
	if m.destroyed {
		return
	}
	if speed <= 0 {
		m.log.Warn("ignoring non-positive rotation speed", zap.Float32("speed", speed))
		return
	}
	m.snap.RotationSpeed = speed
}

// SetBackgroundVideo switches the backdrop between the starfield and the
// video plane owned by the embedding UI.
func (m *Manager) SetBackgroundVideo(show bool) {
	if m.destroyed || m.snap.ShowBackgroundVideo == show {
		return
	}
	m.snap.ShowBackgroundVideo = show
	m.starsVisible = !show
}

// SetCameraPosition moves the camera, unless the requested position is
// within cameraSnapThreshold of the current one. Near-identical broadcasts
// are echoes of this client's own drag and must not fight the controls.
func (m *Manager) SetCameraPosition(pos state.Vec3) {
	if m.destroyed {
		return
	}
	if m.camera.Position.DistanceTo(pos) <= cameraSnapThreshold {
		return
	}
	m.camera.Position = pos
	m.controls.Retarget(pos)
	m.snap.CameraPosition = pos
}

// ApplySnapshot reconciles the live scene with an authoritative snapshot.
// It is the single entry point the sync client uses; each field goes
// through the setter above, so no-op fields are skipped and applying the
// same snapshot twice allocates nothing.
func (m *Manager) ApplySnapshot(s *state.Snapshot) {
	if m.destroyed || s == nil {
		return
	}
	for id := range s.Bodies {
		if !m.cat.Has(id) {
			m.log.Warn("snapshot names unknown body", zap.String("body", string(id)))
		}
	}
	in := s.Clone()
	in.Normalize(m.cat.IDs())

	for id, bs := range in.Bodies {
		m.SetVisibility(id, bs.Visible)
		m.SetScale(id, bs.Scale)
	}
	m.SetOrbitsVisible(in.ShowOrbits)
	m.SetLabelsVisible(in.ShowLabels)
	m.SetRotationSpeed(in.RotationSpeed)
	m.SetBackgroundVideo(in.ShowBackgroundVideo)
	m.SetCameraPosition(in.CameraPosition)

	if m.bus != nil {
		event.Emit(m.bus, event.SnapshotApplied{Snapshot: m.snap.Clone()})
	}
}

// Snapshot returns a copy of the currently applied configuration.
func (m *Manager) Snapshot() *state.Snapshot {
	if m.destroyed {
		return nil
	}
	return m.snap.Clone()
}

// RotationSpeed returns the current global speed multiplier.
func (m *Manager) RotationSpeed() float32 {
	if m.destroyed {
		return 0
	}
	return m.snap.RotationSpeed
}

// Handle returns the live handle for id, or nil for unknown ids.
func (m *Manager) Handle(id state.BodyID) *Handle {
	if m.destroyed {
		return nil
	}
	return m.handles[id]
}

// EachHandle calls fn for every live handle in catalog order.
func (m *Manager) EachHandle(fn func(*Handle)) {
	if m.destroyed {
		return
	}
	for _, id := range m.cat.IDs() {
		if h, ok := m.handles[id]; ok {
			fn(h)
		}
	}
}

// Camera returns the scene camera.
func (m *Manager) Camera() *Camera { return m.camera }

// Controls returns the interactive camera controls.
func (m *Manager) Controls() *Controls { return m.controls }

// StarsVisible reports whether the starfield backdrop is shown.
func (m *Manager) StarsVisible() bool { return m.starsVisible && m.stars != nil }

// Destroy releases every GPU resource reachable from the scene and
// detaches the render surface. Idempotent, and safe on a partially built
// manager. Callers stop the animation loop and close the sync client
// before calling this; see the teardown order in the viewer.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true

	if m.controls != nil {
		m.controls.Detach()
	}
	for _, h := range m.handles {
		h.release()
	}
	m.handles = nil
	if m.stars != nil {
		m.stars.release()
		m.stars = nil
	}
	if m.dev != nil {
		m.dev.Detach()
	}
	m.snap = nil
}

// handle resolves id, logging and returning nil for ids outside the
// catalog. The catalog is closed, so an unknown id means a stale or
// foreign snapshot, not a local bug worth crashing over.
func (m *Manager) handle(id state.BodyID, op string) *Handle {
	if m.destroyed {
		return nil
	}
	h, ok := m.handles[id]
	if !ok {
		m.log.Warn("operation on unknown body",
			zap.String("op", op), zap.String("body", string(id)))
		return nil
	}
	return h
}
