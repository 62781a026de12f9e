// Package device provides a synthetic capture device backed by pion sample tracks.
// It stands in for camera and microphone drivers in headless sessions.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	fuse "github.com/frostbyte73/core"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

const opusFrame = 20 * time.Millisecond

// opusSilence is a single Opus silence frame.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

type Synthetic struct {
	// VideoBusy makes any request including video fail with core.ErrDeviceBusy.
	VideoBusy bool
	// Denied makes every request fail with core.ErrPermissionDenied.
	Denied bool
	// ToneAmplitude is the linear level (0..1) reported by audio tracks.
	ToneAmplitude float64
}

func (s Synthetic) GetUserMedia(ctx context.Context, c core.Constraints) (core.MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Denied {
		return nil, core.ErrPermissionDenied
	}
	if c.Video && s.VideoBusy {
		return nil, fmt.Errorf("camera: %w", core.ErrDeviceBusy)
	}
	if !c.Audio && !c.Video {
		return nil, fmt.Errorf("no media requested: %w", core.ErrPermissionDenied)
	}

	stream := &Stream{id: uuid.NewString()}
	if c.Audio {
		local, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			uuid.NewString(), stream.id,
		)
		if err != nil {
			return nil, err
		}
		t := newTrack(local, domain.KindAudio, s.ToneAmplitude)
		go t.pumpSilence()
		stream.tracks = append(stream.tracks, t)
	}
	if c.Video {
		local, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			uuid.NewString(), stream.id,
		)
		if err != nil {
			stream.stopAll()
			return nil, err
		}
		stream.tracks = append(stream.tracks, newTrack(local, domain.KindVideo, 0))
	}
	log.Info().Str("module", "adapters.device").Str("stream", stream.id).Int("tracks", len(stream.tracks)).Msg("synthetic capture started")
	return stream, nil
}

type Stream struct {
	id     string
	tracks []core.MediaTrack
}

func (s *Stream) ID() string                     { return s.id }
func (s *Stream) Tracks() []core.MediaTrack      { return append([]core.MediaTrack(nil), s.tracks...) }
func (s *Stream) AudioTracks() []core.MediaTrack { return core.TracksOfKind(s.tracks, domain.KindAudio) }
func (s *Stream) VideoTracks() []core.MediaTrack { return core.TracksOfKind(s.tracks, domain.KindVideo) }

func (s *Stream) stopAll() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

type Track struct {
	local     *webrtc.TrackLocalStaticSample
	kind      domain.MediaKind
	amplitude float64
	enabled   atomic.Bool
	stopped   fuse.Fuse
}

func newTrack(local *webrtc.TrackLocalStaticSample, kind domain.MediaKind, amplitude float64) *Track {
	t := &Track{local: local, kind: kind, amplitude: amplitude}
	t.enabled.Store(true)
	return t
}

func (t *Track) ID() string                    { return t.local.ID() }
func (t *Track) Kind() domain.MediaKind        { return t.kind }
func (t *Track) Enabled() bool                 { return t.enabled.Load() }
func (t *Track) SetEnabled(v bool)             { t.enabled.Store(v) }
func (t *Track) TrackLocal() webrtc.TrackLocal { return t.local }
func (t *Track) Stopped() bool                 { return t.stopped.IsBroken() }

func (t *Track) Stop() {
	t.stopped.Break()
}

// ReadTimeDomain reports the configured tone while the track is live and enabled.
func (t *Track) ReadTimeDomain(dst []byte) {
	amp := t.amplitude
	if !t.Enabled() || t.Stopped() {
		amp = 0
	}
	audio.FillSquare(dst, amp)
}

func (t *Track) pumpSilence() {
	ticker := time.NewTicker(opusFrame)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopped.Watch():
			return
		case <-ticker.C:
			if !t.Enabled() {
				continue
			}
			if err := t.local.WriteSample(media.Sample{Data: opusSilence, Duration: opusFrame}); err != nil {
				log.Debug().Err(err).Str("module", "adapters.device").Str("track", t.ID()).Msg("write sample")
			}
		}
	}
}
