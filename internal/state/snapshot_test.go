package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIDs = []BodyID{"sun", "earth", "mars"}

func TestDefaultsAreTotal(t *testing.T) {
	s := Defaults(testIDs)
	assert.Len(t, s.Bodies, len(testIDs))
	for _, id := range testIDs {
		bs, ok := s.Bodies[id]
		require.True(t, ok, "missing %s", id)
		assert.True(t, bs.Visible)
		assert.Equal(t, float32(1.0), bs.Scale)
	}
	assert.Equal(t, float32(1.0), s.RotationSpeed)
	assert.Equal(t, Vec3{0, 20, 50}, s.CameraPosition)
}

func TestCloneIsDeep(t *testing.T) {
	s := Defaults(testIDs)
	c := s.Clone()
	c.Bodies["earth"] = BodyState{Visible: false, Scale: 3}
	c.RotationSpeed = 9

	assert.True(t, s.Bodies["earth"].Visible)
	assert.Equal(t, float32(1.0), s.RotationSpeed)
}

func TestNormalizeFillsAndDrops(t *testing.T) {
	s := &Snapshot{
		Bodies: map[BodyID]BodyState{
			"earth": {Visible: false, Scale: 2},
			"pluto": {Visible: true, Scale: 1},
		},
	}
	s.Normalize(testIDs)

	assert.Len(t, s.Bodies, len(testIDs))
	assert.NotContains(t, s.Bodies, BodyID("pluto"))
	assert.Equal(t, BodyState{Visible: false, Scale: 2}, s.Bodies["earth"])
	// Filled-in bodies get defaults, and a zero rotation speed is repaired.
	assert.Equal(t, BodyState{Visible: true, Scale: 1}, s.Bodies["mars"])
	assert.Equal(t, float32(1.0), s.RotationSpeed)
}

func TestValidate(t *testing.T) {
	s := Defaults(testIDs)
	require.NoError(t, s.Validate())

	s.RotationSpeed = 0
	assert.Error(t, s.Validate())

	s.RotationSpeed = 1
	s.Bodies["mars"] = BodyState{Visible: true, Scale: -1}
	assert.Error(t, s.Validate())
}

func TestPatchApply(t *testing.T) {
	s := Defaults(testIDs)
	p := &Patch{
		Bodies: map[BodyID]BodyPatch{
			"earth": {Visible: Bool(false)},
			"mars":  {Scale: F32(2.5)},
			"pluto": {Visible: Bool(true)}, // unknown, ignored
		},
		RotationSpeed:  F32(3),
		ShowOrbits:     Bool(false),
		CameraPosition: V3(1, 2, 3),
	}
	require.NoError(t, p.Validate())
	p.Apply(s)

	assert.Equal(t, BodyState{Visible: false, Scale: 1}, s.Bodies["earth"])
	assert.Equal(t, BodyState{Visible: true, Scale: 2.5}, s.Bodies["mars"])
	assert.NotContains(t, s.Bodies, BodyID("pluto"))
	assert.Equal(t, float32(3), s.RotationSpeed)
	assert.False(t, s.ShowOrbits)
	assert.True(t, s.ShowLabels, "untouched field keeps its value")
	assert.Equal(t, Vec3{1, 2, 3}, s.CameraPosition)
}

func TestPatchValidate(t *testing.T) {
	assert.Error(t, (&Patch{RotationSpeed: F32(0)}).Validate())
	assert.Error(t, (&Patch{Bodies: map[BodyID]BodyPatch{"earth": {Scale: F32(-2)}}}).Validate())
	assert.NoError(t, (&Patch{}).Validate())
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	s := Defaults(testIDs)
	s.Bodies["mars"] = BodyState{Visible: false, Scale: 0.5}
	s.CameraPosition = Vec3{1.5, -2, 30}

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, *s, back)
}

func TestStateUpdateEnvelope(t *testing.T) {
	s := Defaults(testIDs)
	env, err := NewStateUpdate(s)
	require.NoError(t, err)
	assert.Equal(t, EventStateUpdate, env.Event)

	var back Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &back))
	assert.Equal(t, *s, back)
}

func TestVec3Distance(t *testing.T) {
	a := Vec3{0, 20, 50}
	assert.InDelta(t, 0.05, a.DistanceTo(Vec3{0, 20, 50.05}), 1e-4)
	assert.InDelta(t, 10.0, a.DistanceTo(Vec3{10, 20, 50}), 1e-4)
}
