// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

// FakeTrack is a media track whose waveform is a square wave of Amplitude.
type FakeTrack struct {
	id   string
	kind domain.MediaKind

	amplitude atomic.Float64
	enabled   atomic.Bool
	stops     atomic.Int32
}

func NewFakeTrack(id string, kind domain.MediaKind, amplitude float64) *FakeTrack {
	t := &FakeTrack{id: id, kind: kind}
	t.amplitude.Store(amplitude)
	t.enabled.Store(true)
	return t
}

func (t *FakeTrack) ID() string                { return t.id }
func (t *FakeTrack) Kind() domain.MediaKind    { return t.kind }
func (t *FakeTrack) Enabled() bool             { return t.enabled.Load() }
func (t *FakeTrack) SetEnabled(v bool)         { t.enabled.Store(v) }
func (t *FakeTrack) Stop()                     { t.stops.Inc() }
func (t *FakeTrack) Stops() int                { return int(t.stops.Load()) }
func (t *FakeTrack) SetAmplitude(v float64)    { t.amplitude.Store(v) }
func (t *FakeTrack) ReadTimeDomain(dst []byte) { audio.FillSquare(dst, t.amplitude.Load()) }

type FakeStream struct {
	id     string
	tracks []core.MediaTrack
}

func NewFakeStream(id string, tracks ...core.MediaTrack) *FakeStream {
	return &FakeStream{id: id, tracks: tracks}
}

func (s *FakeStream) ID() string                     { return s.id }
func (s *FakeStream) Tracks() []core.MediaTrack      { return append([]core.MediaTrack(nil), s.tracks...) }
func (s *FakeStream) AudioTracks() []core.MediaTrack { return core.TracksOfKind(s.tracks, domain.KindAudio) }
func (s *FakeStream) VideoTracks() []core.MediaTrack { return core.TracksOfKind(s.tracks, domain.KindVideo) }

// AVStream returns a stream with one audio track at amplitude and one video track.
func AVStream(id string, amplitude float64) *FakeStream {
	return NewFakeStream(id,
		NewFakeTrack(id+"-a", domain.KindAudio, amplitude),
		NewFakeTrack(id+"-v", domain.KindVideo, 0),
	)
}

// FakeDevices answers GetUserMedia with Fn and records every request.
type FakeDevices struct {
	Fn func(c core.Constraints) (core.MediaStream, error)

	mu    sync.Mutex
	calls []core.Constraints
}

func (d *FakeDevices) GetUserMedia(ctx context.Context, c core.Constraints) (core.MediaStream, error) {
	d.mu.Lock()
	d.calls = append(d.calls, c)
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Fn(c)
}

func (d *FakeDevices) Calls() []core.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]core.Constraints(nil), d.calls...)
}
