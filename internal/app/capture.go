package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/rs/zerolog/log"
)

const WarningVideoUnavailable = "video-unavailable"

type CaptureResult struct {
	StreamID string `json:"id"`
	Degraded bool   `json:"degraded,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// CaptureManager owns the local capture source for the session.
type CaptureManager struct {
	devices core.MediaDevices

	mu       sync.Mutex
	stream   core.MediaStream
	degraded bool
}

func NewCaptureManager(devices core.MediaDevices) *CaptureManager {
	return &CaptureManager{devices: devices}
}

// Acquire requests a local source once. A busy device degrades to audio only.
func (m *CaptureManager) Acquire(ctx context.Context, c *core.Constraints) (CaptureResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return CaptureResult{StreamID: m.stream.ID(), Degraded: m.degraded}, nil
	}

	want := core.DefaultConstraints()
	if c != nil {
		want = *c
	}

	stream, err := m.devices.GetUserMedia(ctx, want)
	if err == nil {
		m.stream = stream
		m.degraded = false
		log.Info().Str("module", "app.capture").Str("stream", stream.ID()).Msg("local media acquired")
		return CaptureResult{StreamID: stream.ID()}, nil
	}
	log.Warn().Err(err).Str("module", "app.capture").Msg("getUserMedia failed")

	if !errors.Is(err, core.ErrDeviceBusy) || !want.Video {
		return CaptureResult{}, fmt.Errorf("acquire local media: %w", err)
	}

	stream, micErr := m.devices.GetUserMedia(ctx, core.Constraints{Audio: true, Video: false})
	if micErr != nil {
		log.Warn().Err(micErr).Str("module", "app.capture").Msg("audio only getUserMedia failed")
		return CaptureResult{}, fmt.Errorf("acquire audio only: %w", micErr)
	}
	m.stream = stream
	m.degraded = true
	log.Warn().Str("module", "app.capture").Str("stream", stream.ID()).Msg("camera busy, continuing audio only")
	return CaptureResult{StreamID: stream.ID(), Degraded: true, Warning: WarningVideoUnavailable}, nil
}

// Release stops every held track. No-op when nothing is held.
func (m *CaptureManager) Release() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.degraded = false
	m.mu.Unlock()

	if stream == nil {
		return
	}
	for _, t := range stream.Tracks() {
		t.Stop()
	}
	log.Info().Str("module", "app.capture").Str("stream", stream.ID()).Msg("local media released")
}

func (m *CaptureManager) Stream() core.MediaStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

func (m *CaptureManager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *CaptureManager) SetTrackEnabled(kind domain.MediaKind, enabled bool) {
	s := m.Stream()
	if s == nil {
		return
	}
	for _, t := range core.TracksOfKind(s.Tracks(), kind) {
		t.SetEnabled(enabled)
	}
	log.Debug().Str("module", "app.capture").Str("kind", string(kind)).Bool("enabled", enabled).Msg("track toggle")
}
