// Package render abstracts the GPU-backed render surface. The scene layer
// allocates geometries, materials and textures through a Device and owns
// releasing them; a Device never frees a resource on its own.
package render

import "image/color"

// Geometry is a GPU-side vertex/index allocation. Release frees it;
// releasing twice is a no-op.
type Geometry interface {
	Release()
	// Kind names the shape ("sphere", "ring", "orbit", "points") for
	// logging and tests.
	Kind() string
}

// Material is a GPU-side shading allocation.
type Material interface {
	Release()
}

// Texture is a GPU-side image allocation (labels, sprites).
type Texture interface {
	Release()
}

// Device creates scene resources and presents frames. Implementations are
// not safe for concurrent use; the loop goroutine owns the device.
type Device interface {
	// Sphere allocates an indexed triangle sphere.
	Sphere(radius float32, widthSegs, heightSegs int) Geometry
	// Ring allocates a flat annulus.
	Ring(inner, outer float32, segments int) Geometry
	// OrbitLine allocates a circular line loop of the given radius.
	OrbitLine(radius float32, segments int) Geometry
	// Points allocates a point cloud of n vertices (starfield).
	Points(n int) Geometry

	// SurfaceMaterial shades a body mesh. Emissive surfaces ignore scene
	// lighting (the sun).
	SurfaceMaterial(c color.RGBA, emissive bool) Material
	// LineMaterial shades orbit paths.
	LineMaterial(c color.RGBA, opacity float32) Material
	// PointsMaterial shades the starfield.
	PointsMaterial(size float32) Material

	// TextTexture rasterizes a label string.
	TextTexture(text string) Texture

	// Present issues one render call for the current frame.
	Present() error
	// Detach disconnects the surface from its mount point. Allocated
	// resources stay valid until released.
	Detach()
}
