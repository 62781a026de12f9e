package orch

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/dkeye/voice-client/internal/app"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/metrics"
)

const (
	DefaultSurfaceWait = 3 * time.Second
	DefaultSurfacePoll = 50 * time.Millisecond
)

// ActivityMonitor annotates surfaces with a speaking flag.
type ActivityMonitor interface {
	Start(id domain.SurfaceID)
	Stop(id domain.SurfaceID)
	StopAll()
}

// ForceLeaveFunc is supplied by the UI to take over cleanup when a room is removed.
type ForceLeaveFunc func(ctx context.Context, reason string) error

// Outcome is the result of a teardown protocol.
type Outcome struct {
	Already bool `json:"already,omitempty"`
}

type Orchestrator struct {
	Registry *app.Registry
	Capture  *app.CaptureManager
	Monitor  ActivityMonitor
	Surfaces core.SurfaceProvider
	Peers    core.PeerFactory
	Control  core.ControlClient
	Notify   core.Notifier
	Metrics  *metrics.Metrics
	Clock    clock.Clock

	SurfaceWait time.Duration
	SurfacePoll time.Duration

	mu            sync.RWMutex
	roomID        domain.RoomID
	participantID domain.ParticipantID
	currentRoomID domain.RoomID
	location      string
	forceLeave    ForceLeaveFunc

	// peerMu orders remote track attachment against peer removal.
	peerMu sync.Mutex

	kicking      atomic.Bool
	removingRoom atomic.Bool
	// teardownMu serializes the cleanup sections of both protocols.
	teardownMu sync.Mutex
}

// SetSession records the explicit room and the local participant.
func (o *Orchestrator) SetSession(room domain.RoomID, pid domain.ParticipantID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.roomID = room
	o.participantID = pid
}

func (o *Orchestrator) SetCurrentRoom(room domain.RoomID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentRoomID = room
}

func (o *Orchestrator) SetLocation(location string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.location = location
}

func (o *Orchestrator) SetForceLeave(fn ForceLeaveFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.forceLeave = fn
}

func (o *Orchestrator) Participant() domain.ParticipantID {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.participantID
}

func (o *Orchestrator) clock() clock.Clock {
	if o.Clock == nil {
		return clock.New()
	}
	return o.Clock
}

func (o *Orchestrator) surfaceWait() time.Duration {
	if o.SurfaceWait <= 0 {
		return DefaultSurfaceWait
	}
	return o.SurfaceWait
}

func (o *Orchestrator) surfacePoll() time.Duration {
	if o.SurfacePoll <= 0 {
		return DefaultSurfacePoll
	}
	return o.SurfacePoll
}
