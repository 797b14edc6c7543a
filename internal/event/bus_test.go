package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedDispatch(t *testing.T) {
	b := NewBus()

	var conns []bool
	var frames []error
	Subscribe(b, func(e ConnectionChanged) { conns = append(conns, e.Connected) })
	Subscribe(b, func(e FrameError) { frames = append(frames, e.Err) })

	Emit(b, ConnectionChanged{Connected: true})
	Emit(b, ConnectionChanged{Connected: false})
	Emit(b, FrameError{Err: errors.New("boom")})

	assert.Equal(t, []bool{true, false}, conns)
	assert.Len(t, frames, 1)
}

func TestSubscriptionOrder(t *testing.T) {
	b := NewBus()

	var order []int
	Subscribe(b, func(ConnectionChanged) { order = append(order, 1) })
	Subscribe(b, func(ConnectionChanged) { order = append(order, 2) })
	Subscribe(b, func(ConnectionChanged) { order = append(order, 3) })

	Emit(b, ConnectionChanged{})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestEmitWithoutSubscribers(t *testing.T) {
	b := NewBus()
	assert.NotPanics(t, func() { Emit(b, FrameError{}) })
}
