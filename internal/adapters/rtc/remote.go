package rtc

import (
	"math"
	"sync"

	fuse "github.com/frostbyte73/core"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

// remoteTrack exposes an inbound track. Audio tracks report the level carried
// in the RFC 6464 header extension as a waveform.
type remoteTrack struct {
	track *webrtc.TrackRemote
	kind  domain.MediaKind
	extID uint8

	enabled atomic.Bool
	level   atomic.Float64
	stopped fuse.Fuse
}

func newRemoteTrack(track *webrtc.TrackRemote, extID uint8) *remoteTrack {
	kind := domain.KindVideo
	if track.Kind() == webrtc.RTPCodecTypeAudio {
		kind = domain.KindAudio
	}
	t := &remoteTrack{track: track, kind: kind, extID: extID}
	t.enabled.Store(true)
	return t
}

func audioLevelExtensionID(receiver *webrtc.RTPReceiver) uint8 {
	if receiver == nil {
		return 0
	}
	for _, ext := range receiver.GetParameters().HeaderExtensions {
		if ext.URI == sdp.AudioLevelURI {
			return uint8(ext.ID)
		}
	}
	return 0
}

// LevelToAmplitude converts an audio level in -dBov (0 loudest, 127 silent)
// to a linear amplitude.
func LevelToAmplitude(level uint8) float64 {
	if level >= 127 {
		return 0
	}
	return math.Pow(10, -float64(level)/20)
}

func (t *remoteTrack) ID() string             { return t.track.ID() }
func (t *remoteTrack) Kind() domain.MediaKind { return t.kind }
func (t *remoteTrack) Enabled() bool          { return t.enabled.Load() }
func (t *remoteTrack) SetEnabled(v bool)      { t.enabled.Store(v) }
func (t *remoteTrack) Stop()                  { t.stopped.Break() }

func (t *remoteTrack) ReadTimeDomain(dst []byte) {
	amp := t.level.Load()
	if !t.Enabled() || t.stopped.IsBroken() {
		amp = 0
	}
	audio.FillSquare(dst, amp)
}

// readLoop ends when the peer connection closes the track.
func (t *remoteTrack) readLoop() {
	for {
		pkt, _, err := t.track.ReadRTP()
		if err != nil {
			log.Debug().Err(err).Str("module", "rtc").Str("track_id", t.ID()).Msg("remote track ended")
			t.level.Store(0)
			return
		}
		if t.kind != domain.KindAudio || t.extID == 0 || t.stopped.IsBroken() {
			continue
		}
		t.observe(pkt)
	}
}

func (t *remoteTrack) observe(pkt *rtp.Packet) {
	raw := pkt.GetExtension(t.extID)
	if raw == nil {
		return
	}
	var ext rtp.AudioLevelExtension
	if err := ext.Unmarshal(raw); err != nil {
		return
	}
	t.level.Store(LevelToAmplitude(ext.Level))
}

type remoteStream struct {
	id string

	mu     sync.RWMutex
	tracks []core.MediaTrack
}

func (s *remoteStream) ID() string { return s.id }

func (s *remoteStream) add(t core.MediaTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

func (s *remoteStream) Tracks() []core.MediaTrack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.MediaTrack(nil), s.tracks...)
}

func (s *remoteStream) AudioTracks() []core.MediaTrack {
	return core.TracksOfKind(s.Tracks(), domain.KindAudio)
}

func (s *remoteStream) VideoTracks() []core.MediaTrack {
	return core.TracksOfKind(s.Tracks(), domain.KindVideo)
}
