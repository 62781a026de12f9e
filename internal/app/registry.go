package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/rs/zerolog/log"
)

type peerEntry struct {
	Unit   core.NegotiationUnit
	Cancel context.CancelFunc
}

// Registry is the single authority over negotiation units, keyed by participant.
type Registry struct {
	mu    sync.RWMutex
	peers map[domain.ParticipantID]*peerEntry
}

func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[domain.ParticipantID]*peerEntry),
	}
}

// Put registers unit for pid and returns the unit it replaced, if any.
// The replaced unit is not closed; callers close before re-creating.
func (r *Registry) Put(pid domain.ParticipantID, unit core.NegotiationUnit, cancel context.CancelFunc) core.NegotiationUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	var replaced core.NegotiationUnit
	if old, ok := r.peers[pid]; ok {
		replaced = old.Unit
		if old.Cancel != nil {
			old.Cancel()
		}
		log.Warn().Str("module", "app.registry").Str("pid", string(pid)).Msg("replacing unit without close")
	}
	r.peers[pid] = &peerEntry{Unit: unit, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("registered peer")
	return replaced
}

func (r *Registry) Get(pid domain.ParticipantID) (core.NegotiationUnit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.peers[pid]; ok {
		return e.Unit, true
	}
	return nil, false
}

// Take removes pid and returns its unit. The dispatch loop is cancelled.
func (r *Registry) Take(pid domain.ParticipantID) (core.NegotiationUnit, bool) {
	r.mu.Lock()
	e, ok := r.peers[pid]
	if ok {
		delete(r.peers, pid)
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("unregistered peer")
	return e.Unit, true
}

// Owns reports whether unit is still the registered unit for pid.
func (r *Registry) Owns(pid domain.ParticipantID, unit core.NegotiationUnit) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[pid]
	return ok && e.Unit == unit
}

func (r *Registry) IDs() []domain.ParticipantID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ParticipantID, 0, len(r.peers))
	for pid := range r.peers {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
