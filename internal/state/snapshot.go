package state

import (
	"fmt"

	"github.com/chewxy/math32"
)

// BodyID identifies one orbiting body in the catalog ("earth", "saturn", ...).
type BodyID string

// BodyState is the shared per-body configuration. It carries only what the
// authority synchronizes between viewers; per-frame transforms (orbital
// position, self-rotation) are derived locally and never serialized.
type BodyState struct {
	Visible bool    `json:"visible"`
	Scale   float32 `json:"scale"`
}

// Vec3 is a right-handed float32 vector, matching the render-side math.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float32 {
	return v.Sub(o).Length()
}

// Snapshot is the complete description of the shared scene configuration.
// It is always total: every catalog BodyID has an entry in Bodies. The
// authority owns the authoritative copy; every viewer's live scene is a
// projection of the last snapshot it applied.
type Snapshot struct {
	Bodies              map[BodyID]BodyState `json:"bodies"`
	ShowOrbits          bool                 `json:"showOrbits"`
	ShowLabels          bool                 `json:"showLabels"`
	RotationSpeed       float32              `json:"rotationSpeed"`
	ShowBackgroundVideo bool                 `json:"showBackgroundVideo"`
	CameraPosition      Vec3                 `json:"cameraPosition"`
}

// Defaults returns the compiled-in default snapshot for the given body set:
// everything visible at unit scale, orbits and labels on, speed 1, the
// standard overview camera.
func Defaults(ids []BodyID) *Snapshot {
	s := &Snapshot{
		Bodies:         make(map[BodyID]BodyState, len(ids)),
		ShowOrbits:     true,
		ShowLabels:     true,
		RotationSpeed:  1.0,
		CameraPosition: Vec3{0, 20, 50},
	}
	for _, id := range ids {
		s.Bodies[id] = BodyState{Visible: true, Scale: 1.0}
	}
	return s
}

// Clone returns a deep copy. Snapshots cross goroutine boundaries (loop
// goroutine, hub broadcast, HTTP handlers), so shared map state is never
// handed out directly.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Bodies = make(map[BodyID]BodyState, len(s.Bodies))
	for id, bs := range s.Bodies {
		c.Bodies[id] = bs
	}
	return &c
}

// Normalize makes s total over ids: missing bodies get default state,
// bodies outside ids are dropped. Unknown ids show up when an older viewer
// pushes state built against a stale catalog; they are not an error here.
func (s *Snapshot) Normalize(ids []BodyID) {
	norm := make(map[BodyID]BodyState, len(ids))
	for _, id := range ids {
		if bs, ok := s.Bodies[id]; ok {
			norm[id] = bs
		} else {
			norm[id] = BodyState{Visible: true, Scale: 1.0}
		}
	}
	s.Bodies = norm
	if s.RotationSpeed <= 0 {
		s.RotationSpeed = 1.0
	}
}

// Validate rejects values the engine cannot render from.
func (s *Snapshot) Validate() error {
	if s.RotationSpeed <= 0 {
		return fmt.Errorf("rotationSpeed must be > 0, got %v", s.RotationSpeed)
	}
	for id, bs := range s.Bodies {
		if bs.Scale <= 0 {
			return fmt.Errorf("body %q: scale must be > 0, got %v", id, bs.Scale)
		}
	}
	return nil
}
