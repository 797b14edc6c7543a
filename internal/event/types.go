package event

import "github.com/orrery/orrery/internal/state"

// ConnectionChanged fires on every sync-client transition. The settings UI
// drives its connected/disconnected indicator off this.
type ConnectionChanged struct {
	Connected bool
}

// SnapshotApplied fires after the scene manager finishes applying an
// authoritative snapshot, local or remote.
type SnapshotApplied struct {
	Snapshot *state.Snapshot
}

// FrameError fires when a frame callback failed. The loop keeps running;
// persistent FrameErrors mean the view is degraded and the UI should say so.
type FrameError struct {
	Err error
}
