package preset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/state"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	return NewRegistry(cat, zap.NewNop())
}

func TestCompiledInPresets(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"default", "innerPlanets", "outerPlanets", "earthView", "fastOrbits", "topDown"} {
		s, err := r.Resolve(name)
		require.NoError(t, err, name)
		require.NoError(t, s.Validate(), name)
		assert.Len(t, s.Bodies, 9, "presets are always total")
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := newTestRegistry(t)
	a, err := r.Resolve("innerPlanets")
	require.NoError(t, err)
	b, err := r.Resolve("innerPlanets")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Mutating a resolved copy must not leak into the registry.
	a.Bodies["earth"] = state.BodyState{Visible: false, Scale: 9}
	c, err := r.Resolve("innerPlanets")
	require.NoError(t, err)
	assert.Equal(t, b, c)
}

func TestEarthViewContract(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.Resolve("earthView")
	require.NoError(t, err)

	assert.True(t, s.Bodies["earth"].Visible)
	assert.True(t, s.Bodies["sun"].Visible, "the scene stays anchored on the sun")
	for _, id := range []state.BodyID{"mercury", "venus", "mars", "jupiter", "saturn", "uranus", "neptune"} {
		assert.False(t, s.Bodies[id].Visible, "%s hidden in earthView", id)
	}
	// Camera parked near earth's orbit, well inside the overview distance.
	assert.InDelta(t, 16, s.CameraPosition.Z, 8)
}

func TestInnerOuterSplit(t *testing.T) {
	r := newTestRegistry(t)

	inner, err := r.Resolve("innerPlanets")
	require.NoError(t, err)
	assert.True(t, inner.Bodies["mars"].Visible)
	assert.False(t, inner.Bodies["jupiter"].Visible)

	outer, err := r.Resolve("outerPlanets")
	require.NoError(t, err)
	assert.False(t, outer.Bodies["mars"].Visible)
	assert.True(t, outer.Bodies["jupiter"].Visible)
}

func TestUnknownPreset(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Resolve("warpDrive")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestLoadDir(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	script := `
preset("nightside", {
    rotationSpeed = 0.5,
    showOrbits = false,
    camera = { x = 0, y = 5, z = -30 },
    bodies = {
        earth = { visible = true, scale = 1.5 },
        mars = { visible = false },
        pluto = { visible = true },
    },
})
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nightside.lua"), []byte(script), 0o644))
	require.NoError(t, r.LoadDir(dir))

	s, err := r.Resolve("nightside")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.RotationSpeed, 1e-6)
	assert.False(t, s.ShowOrbits)
	assert.Equal(t, state.Vec3{X: 0, Y: 5, Z: -30}, s.CameraPosition)
	assert.Equal(t, state.BodyState{Visible: true, Scale: 1.5}, s.Bodies["earth"])
	assert.False(t, s.Bodies["mars"].Visible)
	assert.NotContains(t, s.Bodies, state.BodyID("pluto"))
	assert.True(t, s.Bodies["venus"].Visible, "unmentioned bodies keep defaults")
}

func TestLoadDirMissingIsFine(t *testing.T) {
	r := newTestRegistry(t)
	assert.NoError(t, r.LoadDir(filepath.Join(t.TempDir(), "nope")))
}

func TestLoadDirBadScript(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("this is not lua ("), 0o644))
	assert.Error(t, r.LoadDir(dir))
}

func TestLoadDirCannotShadowCompiledIn(t *testing.T) {
	r := newTestRegistry(t)
	dir := t.TempDir()
	script := `preset("earthView", { rotationSpeed = 99 })`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shadow.lua"), []byte(script), 0o644))
	require.NoError(t, r.LoadDir(dir))

	s, err := r.Resolve("earthView")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.RotationSpeed, 1e-6, "compiled-in preset wins")
}

// stubPusher resolves presets the way the authority would.
type stubPusher struct {
	reg  *Registry
	errs error
}

func (p *stubPusher) PushPreset(ctx context.Context, name string) (*state.Snapshot, error) {
	if p.errs != nil {
		return nil, p.errs
	}
	return p.reg.Resolve(name)
}

func TestEngineRoutesThroughPusher(t *testing.T) {
	r := newTestRegistry(t)
	eng := NewEngine(r, &stubPusher{reg: r}, zap.NewNop())

	s, err := eng.Apply(context.Background(), "fastOrbits")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, s.RotationSpeed, 1e-6)

	_, err = eng.Apply(context.Background(), "warpDrive")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestEngineOfflineFallback(t *testing.T) {
	r := newTestRegistry(t)
	eng := NewEngine(r, nil, zap.NewNop())

	s, err := eng.Apply(context.Background(), "topDown")
	require.NoError(t, err)
	assert.InDelta(t, 60, s.CameraPosition.Y, 1e-4)
}

func TestEnginePropagatesTransportError(t *testing.T) {
	r := newTestRegistry(t)
	boom := errors.New("authority unreachable")
	eng := NewEngine(r, &stubPusher{reg: r, errs: boom}, zap.NewNop())

	_, err := eng.Apply(context.Background(), "default")
	assert.ErrorIs(t, err, boom)
}
