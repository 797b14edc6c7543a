package render

import "image/color"

// Headless is a Device without a GPU behind it. It tracks every allocation
// and release so tests (and the headless viewer) can assert that disposal
// is complete and that scale changes do not accumulate geometry.
type Headless struct {
	liveGeometries int
	liveMaterials  int
	liveTextures   int
	totalAllocs    int
	presents       int
	detached       bool
}

// NewHeadless returns an empty headless device.
func NewHeadless() *Headless {
	return &Headless{}
}

type headlessResource struct {
	dev      *Headless
	counter  *int
	kind     string
	released bool
}

func (r *headlessResource) Release() {
	if r.released {
		return
	}
	r.released = true
	*r.counter--
}

func (r *headlessResource) Kind() string { return r.kind }

func (h *Headless) alloc(counter *int, kind string) *headlessResource {
	*counter++
	h.totalAllocs++
	return &headlessResource{dev: h, counter: counter, kind: kind}
}

func (h *Headless) Sphere(radius float32, widthSegs, heightSegs int) Geometry {
	return h.alloc(&h.liveGeometries, "sphere")
}

func (h *Headless) Ring(inner, outer float32, segments int) Geometry {
	return h.alloc(&h.liveGeometries, "ring")
}

func (h *Headless) OrbitLine(radius float32, segments int) Geometry {
	return h.alloc(&h.liveGeometries, "orbit")
}

func (h *Headless) Points(n int) Geometry {
	return h.alloc(&h.liveGeometries, "points")
}

func (h *Headless) SurfaceMaterial(c color.RGBA, emissive bool) Material {
	return h.alloc(&h.liveMaterials, "surface")
}

func (h *Headless) LineMaterial(c color.RGBA, opacity float32) Material {
	return h.alloc(&h.liveMaterials, "line")
}

func (h *Headless) PointsMaterial(size float32) Material {
	return h.alloc(&h.liveMaterials, "points")
}

func (h *Headless) TextTexture(text string) Texture {
	return h.alloc(&h.liveTextures, "text")
}

func (h *Headless) Present() error {
	h.presents++
	return nil
}

func (h *Headless) Detach() {
	h.detached = true
}

// LiveResources returns the number of geometries, materials and textures
// allocated and not yet released.
func (h *Headless) LiveResources() (geometries, materials, textures int) {
	return h.liveGeometries, h.liveMaterials, h.liveTextures
}

// TotalAllocs returns the lifetime allocation count across all resource
// kinds.
func (h *Headless) TotalAllocs() int { return h.totalAllocs }

// Presents returns how many frames have been presented.
func (h *Headless) Presents() int { return h.presents }

// Detached reports whether Detach has been called.
func (h *Headless) Detached() bool { return h.detached }
