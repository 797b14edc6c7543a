package state

import "fmt"

// BodyPatch is a partial BodyState: nil fields are left unchanged.
type BodyPatch struct {
	Visible *bool    `json:"visible,omitempty"`
	Scale   *float32 `json:"scale,omitempty"`
}

// Patch is a partial Snapshot as accepted by POST /state. A full snapshot
// is just a patch with every field present; the authority merges either
// kind over its current state and rebroadcasts the total result.
type Patch struct {
	Bodies              map[BodyID]BodyPatch `json:"bodies,omitempty"`
	ShowOrbits          *bool                `json:"showOrbits,omitempty"`
	ShowLabels          *bool                `json:"showLabels,omitempty"`
	RotationSpeed       *float32             `json:"rotationSpeed,omitempty"`
	ShowBackgroundVideo *bool                `json:"showBackgroundVideo,omitempty"`
	CameraPosition      *Vec3                `json:"cameraPosition,omitempty"`
}

// Validate rejects out-of-range values before they reach the merge, so a
// bad patch never half-applies.
func (p *Patch) Validate() error {
	if p.RotationSpeed != nil && *p.RotationSpeed <= 0 {
		return fmt.Errorf("rotationSpeed must be > 0, got %v", *p.RotationSpeed)
	}
	for id, bp := range p.Bodies {
		if bp.Scale != nil && *bp.Scale <= 0 {
			return fmt.Errorf("body %q: scale must be > 0, got %v", id, *bp.Scale)
		}
	}
	return nil
}

// Apply merges p into s. Body entries for ids s does not carry are ignored;
// the snapshot stays total over the catalog it was normalized against.
func (p *Patch) Apply(s *Snapshot) {
	for id, bp := range p.Bodies {
		bs, ok := s.Bodies[id]
		if !ok {
			continue
		}
		if bp.Visible != nil {
			bs.Visible = *bp.Visible
		}
		if bp.Scale != nil {
			bs.Scale = *bp.Scale
		}
		s.Bodies[id] = bs
	}
	if p.ShowOrbits != nil {
		s.ShowOrbits = *p.ShowOrbits
	}
	if p.ShowLabels != nil {
		s.ShowLabels = *p.ShowLabels
	}
	if p.RotationSpeed != nil {
		s.RotationSpeed = *p.RotationSpeed
	}
	if p.ShowBackgroundVideo != nil {
		s.ShowBackgroundVideo = *p.ShowBackgroundVideo
	}
	if p.CameraPosition != nil {
		s.CameraPosition = *p.CameraPosition
	}
}

// Bool, F32 and V3 are pointer helpers for building patches in code.
func Bool(v bool) *bool        { return &v }
func F32(v float32) *float32   { return &v }
func V3(x, y, z float32) *Vec3 { return &Vec3{x, y, z} }
