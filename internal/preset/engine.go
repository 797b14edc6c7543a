package preset

import (
	"context"

	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/state"
)

// Pusher sends a preset request to the shared authority, which persists
// and broadcasts the resolved snapshot. The sync client implements this.
type Pusher interface {
	PushPreset(ctx context.Context, name string) (*state.Snapshot, error)
}

// Engine is the settings UI's entry point for applying named presets.
// When connected it routes through the authority so every viewer gets the
// change; offline it resolves locally from the registry.
type Engine struct {
	reg    *Registry
	pusher Pusher
	log    *zap.Logger
}

func NewEngine(reg *Registry, pusher Pusher, log *zap.Logger) *Engine {
	return &Engine{reg: reg, pusher: pusher, log: log}
}

// Apply resolves name and applies the resulting snapshot. The returned
// snapshot is the one actually in effect (the authority's answer when
// connected). Unknown names fail with ErrUnknownPreset; the caller asked
// for a named action and deserves to know it did not happen.
func (e *Engine) Apply(ctx context.Context, name string) (*state.Snapshot, error) {
	if e.pusher != nil {
		s, err := e.pusher.PushPreset(ctx, name)
		if err != nil {
			e.log.Warn("preset push failed", zap.String("preset", name), zap.Error(err))
			return nil, err
		}
		return s, nil
	}
	return e.reg.Resolve(name)
}

// Registry exposes the underlying name table (for listing in the UI).
func (e *Engine) Registry() *Registry { return e.reg }
