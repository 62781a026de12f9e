package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/metrics"
)

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// SelfKick asks the server to remove the local participant and then tears
// the session down locally. Nothing local changes unless the server agrees.
func (o *Orchestrator) SelfKick(ctx context.Context) (Outcome, error) {
	if !o.kicking.CompareAndSwap(false, true) {
		o.Metrics.Teardown(metrics.ProtocolSelfKick, metrics.ResultAlready)
		return Outcome{Already: true}, nil
	}
	defer o.kicking.Store(false)

	o.mu.RLock()
	room := o.roomID
	if room == "" {
		room = o.currentRoomID
	}
	pid := o.participantID
	o.mu.RUnlock()
	if room == "" || pid == "" {
		return Outcome{}, core.ErrMissingParams
	}

	if err := o.Control.KickParticipant(ctx, room, pid); err != nil {
		o.Metrics.Teardown(metrics.ProtocolSelfKick, metrics.ResultFailed)
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(room)).Str("pid", string(pid)).Msg("self kick failed")
		return Outcome{}, fmt.Errorf("self kick: %w", err)
	}

	o.teardownMu.Lock()
	o.runSteps(ctx, metrics.ProtocolSelfKick, o.fullCleanup())
	o.teardownMu.Unlock()

	o.Notify.OnKicked(core.ReasonKickedBySelf)
	o.Metrics.Teardown(metrics.ProtocolSelfKick, metrics.ResultOK)
	log.Info().Str("module", "app.orch").Str("room", string(room)).Str("pid", string(pid)).Msg("self kicked")
	return Outcome{}, nil
}

// RemoveRoom deletes the current room on the server and leaves it locally.
func (o *Orchestrator) RemoveRoom(ctx context.Context) (Outcome, error) {
	if !o.removingRoom.CompareAndSwap(false, true) {
		o.Metrics.Teardown(metrics.ProtocolRemoveRoom, metrics.ResultAlready)
		return Outcome{Already: true}, nil
	}
	defer o.removingRoom.Store(false)

	room := o.resolveRoom()
	if room == "" {
		return Outcome{}, core.ErrMissingRoomID
	}

	if err := o.Control.DeleteRoom(ctx, room); err != nil {
		o.Metrics.Teardown(metrics.ProtocolRemoveRoom, metrics.ResultFailed)
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(room)).Msg("remove room failed")
		return Outcome{}, fmt.Errorf("remove room: %w", err)
	}

	o.mu.RLock()
	forceLeave := o.forceLeave
	o.mu.RUnlock()

	// The force-leave callback may run HandleRemoteLeave, which takes teardownMu itself.
	if forceLeave != nil {
		o.runSteps(ctx, metrics.ProtocolRemoveRoom, []step{{
			name: "force_leave",
			fn:   func(ctx context.Context) error { return forceLeave(ctx, core.ReasonRoomClosed) },
		}})
	} else {
		o.teardownMu.Lock()
		o.runSteps(ctx, metrics.ProtocolRemoveRoom, o.minimalCleanup())
		o.teardownMu.Unlock()
	}

	if forceLeave == nil {
		o.Notify.OnKicked(core.ReasonRoomClosed)
	}
	o.Metrics.Teardown(metrics.ProtocolRemoveRoom, metrics.ResultOK)
	log.Info().Str("module", "app.orch").Str("room", string(room)).Msg("room removed")
	return Outcome{}, nil
}

// HandleRemoteLeave tears the session down after the server ended it.
func (o *Orchestrator) HandleRemoteLeave(ctx context.Context, reason string) Outcome {
	if !o.kicking.CompareAndSwap(false, true) {
		return Outcome{Already: true}
	}
	defer o.kicking.Store(false)

	o.teardownMu.Lock()
	o.runSteps(ctx, "remote_leave", o.fullCleanup())
	o.teardownMu.Unlock()

	o.Notify.OnKicked(reason)
	log.Info().Str("module", "app.orch").Str("reason", reason).Msg("left by server")
	return Outcome{}
}

// resolveRoom prefers the explicit room, then the current room, then the location path.
func (o *Orchestrator) resolveRoom() domain.RoomID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.roomID != "" {
		return o.roomID
	}
	if o.currentRoomID != "" {
		return o.currentRoomID
	}
	return domain.RoomFromLocation(o.location)
}

func (o *Orchestrator) fullCleanup() []step {
	return []step{
		{name: "close_peers", fn: o.closePeers},
		{name: "stop_monitors", fn: o.stopMonitors},
		{name: "release_capture", fn: o.releaseCapture},
		{name: "clear_local", fn: o.clearLocal},
		{name: "clear_remotes", fn: o.clearRemotes},
	}
}

func (o *Orchestrator) minimalCleanup() []step {
	return []step{
		{name: "close_peers", fn: o.closePeers},
		{name: "release_capture", fn: o.releaseCapture},
		{name: "clear_local", fn: o.clearLocal},
		{name: "clear_remotes", fn: o.clearRemotes},
	}
}

func (o *Orchestrator) runSteps(ctx context.Context, protocol string, steps []step) {
	for _, s := range steps {
		o.runStep(ctx, protocol, s)
	}
}

// runStep isolates one cleanup step: a failure or panic is logged and counted.
func (o *Orchestrator) runStep(ctx context.Context, protocol string, s step) {
	defer func() {
		if r := recover(); r != nil {
			o.Metrics.CleanupFailed(s.name)
			log.Error().Str("module", "app.orch").Str("protocol", protocol).Str("step", s.name).Interface("panic", r).Msg("cleanup step panicked")
		}
	}()
	if err := s.fn(ctx); err != nil {
		o.Metrics.CleanupFailed(s.name)
		log.Warn().Err(err).Str("module", "app.orch").Str("protocol", protocol).Str("step", s.name).Msg("cleanup step failed")
	}
}

// closePeers closes every unit but leaves surfaces to the clear steps.
func (o *Orchestrator) closePeers(context.Context) error {
	var failed int
	o.peerMu.Lock()
	defer o.peerMu.Unlock()
	for _, pid := range o.Registry.IDs() {
		u, ok := o.Registry.Take(pid)
		if !ok {
			continue
		}
		if err := u.Close(); err != nil {
			failed++
			log.Warn().Err(err).Str("module", "app.orch").Str("pid", string(pid)).Msg("close peer")
		}
		o.Metrics.PeerClosed()
	}
	if failed > 0 {
		return fmt.Errorf("%d peers failed to close", failed)
	}
	return nil
}

func (o *Orchestrator) stopMonitors(context.Context) error {
	o.Monitor.StopAll()
	return nil
}

func (o *Orchestrator) releaseCapture(context.Context) error {
	o.Capture.Release()
	return nil
}

func (o *Orchestrator) clearLocal(context.Context) error {
	if s, ok := o.Surfaces.Lookup(domain.LocalSurfaceID); ok {
		s.Clear()
		s.SetSpeaking(false)
	}
	return nil
}

// clearRemotes neutralizes remote surfaces without removing them.
func (o *Orchestrator) clearRemotes(context.Context) error {
	for _, s := range o.Surfaces.List(domain.RemoteSurfacePrefix) {
		s.Clear()
		s.SetSpeaking(false)
	}
	return nil
}
