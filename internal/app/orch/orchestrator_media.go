package orch

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/app"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

func (o *Orchestrator) AcquireLocalMedia(ctx context.Context, c *core.Constraints) (app.CaptureResult, error) {
	return o.Capture.Acquire(ctx, c)
}

// AttachLocalDisplay renders the local stream on id and starts its monitor.
func (o *Orchestrator) AttachLocalDisplay(id domain.SurfaceID) error {
	stream := o.Capture.Stream()
	if stream == nil {
		return core.ErrNoLocalMedia
	}
	surface, ok := o.Surfaces.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNoSurface, id)
	}
	surface.Bind(stream)
	if err := surface.Play(); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("surface", string(id)).Msg("local play")
	}
	o.Monitor.Start(id)
	return nil
}

func (o *Orchestrator) SetTrackEnabled(kind domain.MediaKind, enabled bool) {
	o.Capture.SetTrackEnabled(kind, enabled)
}

// CreatePeer registers a new unit for pid. An existing unit is replaced, not
// closed; callers close first.
func (o *Orchestrator) CreatePeer(pid domain.ParticipantID, iceServers []webrtc.ICEServer) error {
	if err := pid.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMissingParams, err)
	}
	unit, err := o.Peers.NewUnit(pid, iceServers, o.Capture.Stream())
	if err != nil {
		return fmt.Errorf("create peer %s: %w", pid, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if old := o.Registry.Put(pid, unit, cancel); old != nil {
		log.Warn().Str("module", "app.orch").Str("pid", string(pid)).Bool("old_closed", old.IsClosed()).Msg("peer replaced")
	}
	o.Metrics.PeerCreated()
	go o.dispatch(ctx, unit)
	return nil
}

func (o *Orchestrator) unit(pid domain.ParticipantID) (core.NegotiationUnit, error) {
	u, ok := o.Registry.Get(pid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNoPeer, pid)
	}
	return u, nil
}

func (o *Orchestrator) MakeOffer(pid domain.ParticipantID) (domain.Description, error) {
	u, err := o.unit(pid)
	if err != nil {
		return domain.Description{}, err
	}
	return u.CreateOffer()
}

func (o *Orchestrator) MakeAnswer(pid domain.ParticipantID) (domain.Description, error) {
	u, err := o.unit(pid)
	if err != nil {
		return domain.Description{}, err
	}
	return u.CreateAnswer()
}

func (o *Orchestrator) SetRemoteDescription(pid domain.ParticipantID, d domain.Description) error {
	u, err := o.unit(pid)
	if err != nil {
		return err
	}
	if err := u.SetRemoteDescription(d); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("pid", string(pid)).Str("type", string(d.Type)).Msg("remote description rejected")
		return err
	}
	return nil
}

// AddIceCandidate never tears the peer down; rejection is reported only.
func (o *Orchestrator) AddIceCandidate(pid domain.ParticipantID, c domain.Candidate) error {
	u, err := o.unit(pid)
	if err != nil {
		return err
	}
	if err := u.AddICECandidate(c); err != nil {
		o.Metrics.CandidateRejected()
		log.Warn().Err(err).Str("module", "app.orch").Str("pid", string(pid)).Msg("candidate rejected")
		return fmt.Errorf("%w: %v", core.ErrCandidateRejected, err)
	}
	return nil
}

// ClosePeer is idempotent. Layout surfaces are left in place.
func (o *Orchestrator) ClosePeer(pid domain.ParticipantID) {
	o.peerMu.Lock()
	defer o.peerMu.Unlock()

	if u, ok := o.Registry.Take(pid); ok {
		if err := u.Close(); err != nil {
			log.Warn().Err(err).Str("module", "app.orch").Str("pid", string(pid)).Msg("close peer")
		}
		o.Metrics.PeerClosed()
	}

	sid := domain.RemoteSurfaceID(pid)
	o.Monitor.Stop(sid)
	if s, ok := o.Surfaces.Lookup(sid); ok && s.Dynamic() {
		s.Clear()
		o.Surfaces.Remove(sid)
		log.Info().Str("module", "app.orch").Str("surface", string(sid)).Msg("removed synthesized surface")
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, unit core.NegotiationUnit) {
	pid := unit.Participant()
	for {
		select {
		case <-ctx.Done():
			return
		case <-unit.Done():
			return
		case ev := <-unit.Events():
			switch ev.Kind {
			case core.EventCandidate:
				o.Notify.OnLocalIce(pid, ev.Candidate)
			case core.EventTrack:
				go o.onRemoteTrack(ctx, unit, ev)
			case core.EventState:
				log.Debug().Str("module", "app.orch").Str("pid", string(pid)).Str("state", ev.State).Msg("peer state")
			}
		}
	}
}

func (o *Orchestrator) onRemoteTrack(ctx context.Context, unit core.NegotiationUnit, ev core.PeerEvent) {
	pid := unit.Participant()
	sid := domain.RemoteSurfaceID(pid)

	surface, ok := o.waitForSurface(ctx, sid)

	o.peerMu.Lock()
	defer o.peerMu.Unlock()
	if ctx.Err() != nil || !o.Registry.Owns(pid, unit) {
		log.Debug().Str("module", "app.orch").Str("pid", string(pid)).Msg("track for closed peer discarded")
		return
	}
	if !ok {
		log.Warn().Str("module", "app.orch").Str("surface", string(sid)).Dur("waited", o.surfaceWait()).Msg("surface did not appear")
		surface = o.Surfaces.Create(sid)
	}

	if ev.Stream != nil {
		surface.Bind(ev.Stream)
	}
	if err := surface.Play(); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("surface", string(sid)).Msg("remote play")
	}
	o.Monitor.Start(sid)
	o.Notify.OnRemoteTrack(pid)
}

// waitForSurface polls for id until it appears or the wait elapses.
func (o *Orchestrator) waitForSurface(ctx context.Context, id domain.SurfaceID) (core.Surface, bool) {
	if s, ok := o.Surfaces.Lookup(id); ok {
		return s, true
	}
	clk := o.clock()
	deadline := clk.Timer(o.surfaceWait())
	defer deadline.Stop()
	ticker := clk.Ticker(o.surfacePoll())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return o.Surfaces.Lookup(id)
		case <-ticker.C:
			if s, ok := o.Surfaces.Lookup(id); ok {
				return s, true
			}
		}
	}
}
