// Package authority implements the shared state authority: the HTTP API
// viewers mutate state through, the push channel that fans every change
// back out, and snapshot persistence. State semantics are last write wins,
// full replace — the server merges patches over current state and always
// broadcasts a total snapshot.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/catalog"
	"github.com/orrery/orrery/internal/config"
	"github.com/orrery/orrery/internal/persist"
	"github.com/orrery/orrery/internal/preset"
	"github.com/orrery/orrery/internal/state"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Viewers are dashboards served from anywhere on the LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server owns the authoritative snapshot.
type Server struct {
	cat     *catalog.Catalog
	presets *preset.Registry
	store   persist.Store
	hub     *Hub
	cfg     config.AuthorityConfig
	log     *zap.Logger

	mu  gosync.Mutex
	cur *state.Snapshot
}

// NewServer restores the last stored snapshot (compiled-in defaults on
// first boot) and wires the hub.
func NewServer(ctx context.Context, cat *catalog.Catalog, presets *preset.Registry, store persist.Store, cfg config.AuthorityConfig, log *zap.Logger) (*Server, error) {
	cur, err := store.LoadCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	if cur == nil {
		cur = state.Defaults(cat.IDs())
		log.Info("no stored snapshot, starting from defaults")
	} else {
		cur.Normalize(cat.IDs())
		log.Info("restored snapshot from store")
	}
	return &Server{
		cat:     cat,
		presets: presets,
		store:   store,
		hub:     NewHub(cfg.BroadcastQueue, cfg.WriteTimeout, log),
		cfg:     cfg,
		log:     log,
		cur:     cur,
	}, nil
}

// Hub exposes the broadcast hub (shutdown, tests).
func (s *Server) Hub() *Hub { return s.hub }

// Current returns a copy of the authoritative snapshot.
func (s *Server) Current() *state.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Router builds the HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", s.handleGetState)
	r.Get("/ws", s.handleWS)
	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)
		r.Post("/state", s.handlePostState)
		r.Post("/preset/{name}", s.handlePostPreset)
		r.Post("/reset", s.handlePostReset)
	})
	return r
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeSnapshot(w, s.Current())
}

func (s *Server) handlePostState(w http.ResponseWriter, r *http.Request) {
	var p state.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "malformed patch: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for id := range p.Bodies {
		if !s.cat.Has(id) {
			s.log.Warn("patch names unknown body", zap.String("body", string(id)))
		}
	}
	next := s.commit(func(cur *state.Snapshot) { p.Apply(cur) }, "state")
	s.writeSnapshot(w, next)
}

func (s *Server) handlePostPreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	resolved, err := s.presets.Resolve(name)
	if err != nil {
		if errors.Is(err, preset.ErrUnknownPreset) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	next := s.commit(func(cur *state.Snapshot) { *cur = *resolved }, "preset:"+name)
	s.writeSnapshot(w, next)
}

func (s *Server) handlePostReset(w http.ResponseWriter, r *http.Request) {
	defaults := state.Defaults(s.cat.IDs())
	next := s.commit(func(cur *state.Snapshot) { *cur = *defaults }, "reset")
	s.writeSnapshot(w, next)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Add(conn)
}

// commit applies mutate to a copy of the current snapshot, swaps it in,
// persists it and broadcasts it. A persistence failure is logged but does
// not roll the live state back; the next successful save catches up.
func (s *Server) commit(mutate func(*state.Snapshot), source string) *state.Snapshot {
	s.mu.Lock()
	next := s.cur.Clone()
	mutate(next)
	next.Normalize(s.cat.IDs())
	s.cur = next
	out := next.Clone()
	s.mu.Unlock()

	if err := s.store.SaveCurrent(context.Background(), out, source); err != nil {
		s.log.Error("persist snapshot", zap.String("source", source), zap.Error(err))
	}
	s.hub.Broadcast(out)
	return out
}

func (s *Server) writeSnapshot(w http.ResponseWriter, snap *state.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}
