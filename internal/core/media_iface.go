package core

import (
	"context"

	"github.com/dkeye/voice-client/internal/domain"
	"github.com/pion/webrtc/v4"
)

// MediaTrack is one audio or video track, local or remote.
type MediaTrack interface {
	ID() string
	Kind() domain.MediaKind
	Enabled() bool
	SetEnabled(bool)
	// Stop releases the underlying source. Safe to call more than once.
	Stop()
}

// LocalTrack is a track that can be attached to a peer connection.
type LocalTrack interface {
	MediaTrack
	TrackLocal() webrtc.TrackLocal
}

// WaveformSource exposes the time-domain waveform of an audio track as
// unsigned 8-bit samples centred at 128.
type WaveformSource interface {
	ReadTimeDomain(dst []byte)
}

type MediaStream interface {
	ID() string
	Tracks() []MediaTrack
	AudioTracks() []MediaTrack
	VideoTracks() []MediaTrack
}

type Constraints struct {
	Audio bool `json:"audio"`
	Video bool `json:"video"`
}

func DefaultConstraints() Constraints {
	return Constraints{Audio: true, Video: true}
}

// MediaDevices grants local capture sources.
// ErrDeviceBusy signals that a device is held exclusively elsewhere.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (MediaStream, error)
}

// TracksOfKind filters tracks by kind.
func TracksOfKind(tracks []MediaTrack, kind domain.MediaKind) []MediaTrack {
	out := make([]MediaTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}
