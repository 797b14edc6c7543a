package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/authority"
	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/config"
	"github.com/orrery/orrery/internal/event"
	"github.com/orrery/orrery/internal/persist"
	"github.com/orrery/orrery/internal/preset"
	"github.com/orrery/orrery/internal/state"
)

func startAuthority(t *testing.T) (*authority.Server, *httptest.Server) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)
	log := zap.NewNop()
	srv, err := authority.NewServer(context.Background(), cat,
		preset.NewRegistry(cat, log), persist.NewMemStore(),
		config.Defaults().Authority, log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Hub().CloseAll()
		ts.Close()
	})
	return srv, ts
}

// startClient wires a client whose applied snapshots land on a channel.
func startClient(t *testing.T, baseURL string, bus *event.Bus) (*Client, chan *state.Snapshot) {
	t.Helper()
	applied := make(chan *state.Snapshot, 16)
	c := NewClient(Config{
		BaseURL:   baseURL,
		RetryWait: 50 * time.Millisecond,
	}, bus, zap.NewNop(), func(s *state.Snapshot) { applied <- s })
	c.Start()
	t.Cleanup(c.Close)
	return c, applied
}

func waitApplied(t *testing.T, applied chan *state.Snapshot) *state.Snapshot {
	t.Helper()
	select {
	case s := <-applied:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot applied")
		return nil
	}
}

func TestConnectFetchesInitialState(t *testing.T) {
	_, ts := startAuthority(t)
	bus := event.NewBus()

	var transitions []bool
	event.Subscribe(bus, func(e event.ConnectionChanged) {
		transitions = append(transitions, e.Connected)
	})

	c, applied := startClient(t, ts.URL, bus)

	got := waitApplied(t, applied)
	assert.Len(t, got.Bodies, 9)
	require.Eventually(t, c.Connected, time.Second, 10*time.Millisecond)

	c.Close()
	assert.False(t, c.Connected())
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestBroadcastReachesClient(t *testing.T) {
	srv, ts := startAuthority(t)
	_, applied := startClient(t, ts.URL, nil)

	waitApplied(t, applied) // initial fetch
	require.Eventually(t, func() bool { return srv.Hub().Count() == 1 },
		time.Second, 10*time.Millisecond)

	// Another participant mutates state over plain HTTP.
	resp, err := http.Post(ts.URL+"/state", "application/json",
		strings.NewReader(`{"showOrbits":false,"bodies":{"venus":{"scale":2}}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := waitApplied(t, applied)
	assert.False(t, got.ShowOrbits)
	assert.InDelta(t, 2.0, got.Bodies["venus"].Scale, 1e-6)
	assert.Len(t, got.Bodies, 9, "broadcasts are always total snapshots")
}

func TestPushStateDeliversMergedResult(t *testing.T) {
	_, ts := startAuthority(t)
	c, applied := startClient(t, ts.URL, nil)
	waitApplied(t, applied)

	snap, err := c.PushState(context.Background(), &state.Patch{
		RotationSpeed:  state.F32(3),
		CameraPosition: state.V3(5, 12, 40),
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, snap.RotationSpeed, 1e-6)
	assert.Equal(t, state.Vec3{X: 5, Y: 12, Z: 40}, snap.CameraPosition)

	// The response goes through the apply path, and the broadcast echo of
	// our own write arrives over the channel too.
	got := waitApplied(t, applied)
	assert.InDelta(t, 3.0, got.RotationSpeed, 1e-6)
}

func TestPushStateRejected(t *testing.T) {
	_, ts := startAuthority(t)
	c, applied := startClient(t, ts.URL, nil)
	waitApplied(t, applied)

	_, err := c.PushState(context.Background(), &state.Patch{RotationSpeed: state.F32(-1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestPushPreset(t *testing.T) {
	_, ts := startAuthority(t)
	c, applied := startClient(t, ts.URL, nil)
	waitApplied(t, applied)

	snap, err := c.PushPreset(context.Background(), "earthView")
	require.NoError(t, err)
	assert.True(t, snap.Bodies["earth"].Visible)
	assert.False(t, snap.Bodies["jupiter"].Visible)

	_, err = c.PushPreset(context.Background(), "nosuch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, preset.ErrUnknownPreset))
}

func TestPushReset(t *testing.T) {
	_, ts := startAuthority(t)
	c, applied := startClient(t, ts.URL, nil)
	waitApplied(t, applied)

	_, err := c.PushState(context.Background(), &state.Patch{ShowLabels: state.Bool(false)})
	require.NoError(t, err)

	snap, err := c.PushReset(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.ShowLabels)
	assert.InDelta(t, 1.0, snap.RotationSpeed, 1e-6)
}

func TestRetriesWhileUnreachable(t *testing.T) {
	applied := make(chan *state.Snapshot, 16)
	c := NewClient(Config{
		BaseURL:   "http://127.0.0.1:1", // nothing listens here
		RetryWait: 20 * time.Millisecond,
	}, nil, zap.NewNop(), func(s *state.Snapshot) { applied <- s })
	c.Start()
	t.Cleanup(c.Close)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, c.Connected())
	assert.Empty(t, applied)
}

func TestCloseIsIdempotent(t *testing.T) {
	_, ts := startAuthority(t)
	c, applied := startClient(t, ts.URL, nil)
	waitApplied(t, applied)

	c.Close()
	c.Close()
	assert.False(t, c.Connected())
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
		err  bool
	}{
		{base: "http://localhost:7711", want: "ws://localhost:7711/ws"},
		{base: "https://orrery.example.com", want: "wss://orrery.example.com/ws"},
		{base: "ftp://what", err: true},
	}
	for _, tt := range tests {
		got, err := websocketURL(tt.base)
		if tt.err {
			assert.Error(t, err, tt.base)
			continue
		}
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got)
	}
}
