package scene

import "github.com/orrery/orrery/internal/state"

// cameraSnapThreshold is the minimum distance (world units) between the
// current and a requested camera position before the request is honored.
// A local drag is reported upstream, rebroadcast, and arrives back here;
// without the threshold the echo would visibly snap the camera the same
// client just moved.
const cameraSnapThreshold = 0.5

// controlDamping is the easing rate for interactive camera movement.
const controlDamping = 6.0

// Camera is the scene viewpoint. Position is eased toward the controls'
// target each frame; LookAt stays on the origin.
type Camera struct {
	Position state.Vec3
	LookAt   state.Vec3
}

// Controls models the interactive drag/zoom input surface. User gestures
// move the target; the animation loop eases the camera toward it with
// damping. A move listener (the sync client) hears where the user settled.
type Controls struct {
	cam      *Camera
	target   state.Vec3
	onMove   func(state.Vec3)
	attached bool
}

func newControls(cam *Camera) *Controls {
	return &Controls{cam: cam, target: cam.Position, attached: true}
}

// OnMove registers the listener notified after each user gesture.
func (c *Controls) OnMove(fn func(state.Vec3)) {
	c.onMove = fn
}

// Drag offsets the camera target by a world-space delta.
func (c *Controls) Drag(delta state.Vec3) {
	if !c.attached {
		return
	}
	c.target = c.target.Add(delta)
	if c.onMove != nil {
		c.onMove(c.target)
	}
}

// Zoom moves the camera target along the view direction. Positive amounts
// zoom in.
func (c *Controls) Zoom(amount float32) {
	if !c.attached {
		return
	}
	dir := c.cam.LookAt.Sub(c.target)
	dist := dir.Length()
	if dist <= 0.001 {
		return
	}
	step := amount
	if step >= dist {
		step = dist - 0.001
	}
	c.target = c.target.Add(dir.Scale(step / dist))
	if c.onMove != nil {
		c.onMove(c.target)
	}
}

// Retarget jumps the easing target without notifying the move listener.
// Used when an authoritative snapshot repositions the camera, so the
// update is not re-sent upstream as if the user had dragged.
func (c *Controls) Retarget(pos state.Vec3) {
	c.target = pos
}

// Update applies one frame of damped easing. Called by the animation loop.
func (c *Controls) Update(dt float32) {
	if !c.attached {
		return
	}
	t := controlDamping * dt
	if t > 1 {
		t = 1
	}
	c.cam.Position = c.cam.Position.Add(c.target.Sub(c.cam.Position).Scale(t))
}

// Detach disconnects the controls from input; further gestures and updates
// are no-ops. Idempotent.
func (c *Controls) Detach() {
	c.attached = false
	c.onMove = nil
}
