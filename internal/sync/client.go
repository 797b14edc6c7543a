// Package sync maintains the push-channel connection to the shared state
// authority. Broadcast snapshots and the responses to locally initiated
// changes travel through one application path: a full snapshot handed to
// the apply callback. The protocol is last-write-wins full replace; two
// viewers editing at the same moment can clobber each other, which is
// accepted given how small scene state is.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/event"
	"github.com/orrery/orrery/internal/preset"
	"github.com/orrery/orrery/internal/state"
)

// Config wires a client to one authority.
type Config struct {
	// BaseURL is the authority's HTTP root, e.g. "http://localhost:7711".
	BaseURL string
	// AccessKey authenticates mutating requests when the authority is
	// write-protected. Empty means no auth header is sent.
	AccessKey string
	// RetryWait is the pause between reconnect attempts.
	RetryWait time.Duration
	// RequestTimeout bounds each HTTP round trip.
	RequestTimeout time.Duration
}

func (c *Config) defaults() {
	if c.RetryWait == 0 {
		c.RetryWait = 2 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

// Client is the sync client. Its connection state machine is
// Disconnected → Connecting → Connected → Disconnected, retrying forever
// until Close. Every full snapshot it obtains — initial fetch, broadcast,
// or mutation response — goes through the single apply callback.
type Client struct {
	cfg   Config
	httpc *http.Client
	bus   *event.Bus
	log   *zap.Logger

	// apply delivers an authoritative snapshot to the scene. The viewer
	// wires this to post onto the loop goroutine.
	apply func(*state.Snapshot)

	connected atomic.Bool
	stopCh    chan struct{}
	stopOnce  gosync.Once
	wg        gosync.WaitGroup

	mu   gosync.Mutex
	conn *websocket.Conn
}

func NewClient(cfg Config, bus *event.Bus, log *zap.Logger, apply func(*state.Snapshot)) *Client {
	cfg.defaults()
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.RequestTimeout},
		bus:    bus,
		log:    log,
		apply:  apply,
		stopCh: make(chan struct{}),
	}
}

// Start launches the connection loop in its own goroutine.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.run()
}

// Close disconnects the push channel and stops reconnecting. Idempotent.
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

// Connected reports the current channel state. The UI's disconnected
// indicator hangs off the ConnectionChanged event instead of polling this.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		if err := c.connectOnce(); err != nil {
			c.log.Warn("push channel down", zap.Error(err))
		}
		select {
		case <-c.stopCh:
			return
		case <-time.After(c.cfg.RetryWait):
		}
	}
}

// connectOnce dials the channel, pulls a fresh snapshot, then reads
// broadcasts until the connection dies. The pull on connect covers
// broadcasts missed while disconnected; waiting passively would leave the
// scene stale until someone else changed something.
func (c *Client) connectOnce() error {
	wsURL, err := websocketURL(c.cfg.BaseURL)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		c.setConnected(false)
	}()
	c.setConnected(true)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	snap, err := c.FetchState(ctx)
	cancel()
	if err != nil {
		// Transient: keep whatever state we had, the read loop below will
		// still deliver the next broadcast.
		c.log.Warn("initial state fetch failed", zap.Error(err))
	} else {
		c.deliver(snap)
	}

	for {
		var env state.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			select {
			case <-c.stopCh:
				return nil
			default:
			}
			return fmt.Errorf("read: %w", err)
		}
		if env.Event != state.EventStateUpdate {
			c.log.Debug("ignoring channel event", zap.String("event", env.Event))
			continue
		}
		var snap state.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			c.log.Warn("malformed state-update payload", zap.Error(err))
			continue
		}
		c.deliver(&snap)
	}
}

func (c *Client) deliver(s *state.Snapshot) {
	if c.apply != nil {
		c.apply(s)
	}
}

func (c *Client) setConnected(v bool) {
	if c.connected.Swap(v) == v {
		return
	}
	if v {
		c.log.Info("push channel connected", zap.String("authority", c.cfg.BaseURL))
	} else {
		c.log.Info("push channel disconnected")
	}
	if c.bus != nil {
		event.Emit(c.bus, event.ConnectionChanged{Connected: v})
	}
}

// FetchState pulls the current authoritative snapshot.
func (c *Client) FetchState(ctx context.Context) (*state.Snapshot, error) {
	return c.roundTrip(ctx, http.MethodGet, "/state", nil, false)
}

// PushState sends a locally initiated change upstream. The authority
// merges, persists, rebroadcasts and returns the resulting full snapshot,
// which is applied through the same path as a broadcast.
func (c *Client) PushState(ctx context.Context, p *state.Patch) (*state.Snapshot, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	snap, err := c.roundTrip(ctx, http.MethodPost, "/state", body, true)
	if err != nil {
		return nil, err
	}
	c.deliver(snap)
	return snap, nil
}

// PushPreset asks the authority to apply a named preset.
func (c *Client) PushPreset(ctx context.Context, name string) (*state.Snapshot, error) {
	snap, err := c.roundTrip(ctx, http.MethodPost, "/preset/"+url.PathEscape(name), nil, true)
	if err != nil {
		return nil, err
	}
	c.deliver(snap)
	return snap, nil
}

// PushReset restores the authority's compiled-in defaults.
func (c *Client) PushReset(ctx context.Context) (*state.Snapshot, error) {
	snap, err := c.roundTrip(ctx, http.MethodPost, "/reset", nil, true)
	if err != nil {
		return nil, err
	}
	c.deliver(snap)
	return snap, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, mutating bool) (*state.Snapshot, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutating && c.cfg.AccessKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, preset.ErrUnknownPreset)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var snap state.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return &snap, nil
}

var errBadScheme = errors.New("authority url must be http or https")

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("authority url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errBadScheme
	}
	u.Path = "/ws"
	return u.String(), nil
}
