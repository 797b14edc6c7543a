package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/render"
	"github.com/orrery/orrery/internal/state"
)

const (
	sphereWidthSegs  = 32
	sphereHeightSegs = 16
	ringSegments     = 64
	orbitSegments    = 128
	labelClearance   = 0.6
	orbitOpacity     = 0.25
	starfieldSize    = 0.8
)

// Factory builds renderable primitives from catalog entries and current
// body state. It is deterministic: identical inputs allocate identical
// resources. The factory never frees what it allocates; released resources
// go through the manager's disposal path.
type Factory struct {
	dev render.Device
	log *zap.Logger
}

func NewFactory(dev render.Device, log *zap.Logger) *Factory {
	return &Factory{dev: dev, log: log}
}

// BuildBody constructs the full handle for one catalog entry: body mesh,
// ring sub-mesh where the entry carries one, label texture and orbit path.
func (f *Factory) BuildBody(entry *catalog.Entry, bs state.BodyState) (*Handle, error) {
	if entry.BaseRadius <= 0 {
		// The catalog validates this at load; hitting it here means the
		// entry bypassed catalog.Load.
		return nil, fmt.Errorf("body %q: base radius %v", entry.ID, entry.BaseRadius)
	}
	radius := entry.BaseRadius * bs.Scale
	h := &Handle{
		ID:          entry.ID,
		Entry:       entry,
		Geom:        f.dev.Sphere(radius, sphereWidthSegs, sphereHeightSegs),
		Mat:         f.dev.SurfaceMaterial(entry.RGBA(), !entry.Orbits()),
		LabelTex:    f.dev.TextTexture(entry.Symbol + " " + entry.DisplayName),
		LabelOffset: radius + labelClearance,
		Visible:     bs.Visible,
		Scale:       bs.Scale,
	}
	if entry.Ring {
		h.RingGeom = f.dev.Ring(entry.RingInner*bs.Scale, entry.RingOuter*bs.Scale, ringSegments)
		h.RingMat = f.dev.SurfaceMaterial(entry.RGBA(), false)
	}
	if entry.Orbits() {
		h.OrbitGeom = f.dev.OrbitLine(entry.OrbitalRadiusUnits, orbitSegments)
		h.OrbitMat = f.dev.LineMaterial(entry.RGBA(), orbitOpacity)
	}
	return h, nil
}

// RebuildGeometry replaces the handle's body (and ring) geometry for a new
// scale, releasing the old allocations immediately so geometry never
// accumulates. The label offset moves with the new radius.
func (f *Factory) RebuildGeometry(h *Handle, scale float32) {
	radius := h.Entry.BaseRadius * scale

	old := h.Geom
	h.Geom = f.dev.Sphere(radius, sphereWidthSegs, sphereHeightSegs)
	old.Release()

	if h.Entry.Ring {
		oldRing := h.RingGeom
		h.RingGeom = f.dev.Ring(h.Entry.RingInner*scale, h.Entry.RingOuter*scale, ringSegments)
		oldRing.Release()
	}

	h.Scale = scale
	h.LabelOffset = radius + labelClearance
}

// Starfield is the background point cloud.
type Starfield struct {
	Geom render.Geometry
	Mat  render.Material
}

// BuildStarfield allocates the background star point cloud. The point
// distribution is the device's concern; the count is fixed config, so the
// build is deterministic.
func (f *Factory) BuildStarfield(count int) *Starfield {
	return &Starfield{
		Geom: f.dev.Points(count),
		Mat:  f.dev.PointsMaterial(starfieldSize),
	}
}

func (s *Starfield) release() {
	if s.Geom != nil {
		s.Geom.Release()
		s.Geom = nil
	}
	if s.Mat != nil {
		s.Mat.Release()
		s.Mat = nil
	}
}
