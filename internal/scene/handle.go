package scene

import (
	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/render"
	"github.com/orrery/orrery/internal/state"
)

// Handle is the live renderable group for one body: the body mesh, an
// optional ring sub-mesh, the attached label and the orbit-path line.
// Handles are created once during scene construction, mutated in place on
// scale/visibility changes, and destroyed only on full disposal.
type Handle struct {
	ID    state.BodyID
	Entry *catalog.Entry

	Geom render.Geometry
	Mat  render.Material

	// Ring sub-mesh, attached as a child of the body mesh. Nil for bodies
	// without Entry.Ring.
	RingGeom render.Geometry
	RingMat  render.Material

	LabelTex render.Texture
	// LabelOffset keeps the label just outside the scaled body radius.
	LabelOffset float32

	OrbitGeom render.Geometry
	OrbitMat  render.Material

	Visible      bool
	Scale        float32
	OrbitVisible bool
	LabelVisible bool

	// Per-frame transform state. Written only by the animation loop; the
	// manager touches structure, visibility and scale, never these.
	Position state.Vec3
	Rotation float32
}

// release frees every GPU resource the handle owns and nils the
// references. Safe to call twice.
func (h *Handle) release() {
	for _, r := range []interface{ Release() }{
		h.Geom, h.Mat, h.RingGeom, h.RingMat, h.LabelTex, h.OrbitGeom, h.OrbitMat,
	} {
		if r != nil {
			r.Release()
		}
	}
	h.Geom, h.Mat = nil, nil
	h.RingGeom, h.RingMat = nil, nil
	h.LabelTex = nil
	h.OrbitGeom, h.OrbitMat = nil, nil
}
