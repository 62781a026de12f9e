package rtc

import (
	"errors"
	"sync"

	fuse "github.com/frostbyte73/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

const eventBuffer = 64

var ErrClosed = errors.New("negotiation unit closed")

// Connection wraps one pion PeerConnection towards a single participant.
type Connection struct {
	pc  *webrtc.PeerConnection
	pid domain.ParticipantID

	events chan core.PeerEvent
	closed fuse.Fuse

	mu      sync.Mutex
	pending []webrtc.ICECandidateInit
	streams map[string]*remoteStream
}

func NewConnection(api *webrtc.API, cfg webrtc.Configuration, pid domain.ParticipantID) (*Connection, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		pc:      pc,
		pid:     pid,
		events:  make(chan core.PeerEvent, eventBuffer),
		streams: make(map[string]*remoteStream),
	}
	c.bind()
	return c, nil
}

func (c *Connection) bind() {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		ci := cand.ToJSON()
		c.emit(core.PeerEvent{
			Kind: core.EventCandidate,
			Candidate: domain.Candidate{
				Candidate:        ci.Candidate,
				SDPMid:           ci.SDPMid,
				SDPMLineIndex:    ci.SDPMLineIndex,
				UsernameFragment: ci.UsernameFragment,
			},
		})
	})

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("participant", string(c.pid)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("participant", string(c.pid)).Str("peer_connection_state", s.String()).Msg("Peer state")
		c.emit(core.PeerEvent{Kind: core.EventState, State: s.String()})
	})

	c.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("participant", string(c.pid)).
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")

		rt := newRemoteTrack(track, audioLevelExtensionID(receiver))
		stream := c.streamFor(track.StreamID(), rt)
		go rt.readLoop()
		c.emit(core.PeerEvent{Kind: core.EventTrack, Track: rt, Stream: stream})
	})
}

func (c *Connection) streamFor(id string, t *remoteTrack) *remoteStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.streams[id]
	if !ok {
		s = &remoteStream{id: id}
		c.streams[id] = s
	}
	s.add(t)
	return s
}

// emit stops delivering once the connection is closed. It never blocks pion's
// callback goroutines: with nobody draining Events, the event is dropped.
func (c *Connection) emit(ev core.PeerEvent) {
	ev.Participant = c.pid
	if c.closed.IsBroken() {
		return
	}
	select {
	case c.events <- ev:
	default:
		log.Warn().Str("module", "rtc").Str("participant", string(c.pid)).Int("kind", int(ev.Kind)).Msg("event buffer full, event dropped")
	}
}

func (c *Connection) Participant() domain.ParticipantID { return c.pid }
func (c *Connection) Events() <-chan core.PeerEvent    { return c.events }
func (c *Connection) Done() <-chan struct{}            { return c.closed.Watch() }
func (c *Connection) IsClosed() bool                   { return c.closed.IsBroken() }

func (c *Connection) State() core.NegotiationState {
	if c.closed.IsBroken() {
		return core.StateClosed
	}
	switch c.pc.SignalingState() {
	case webrtc.SignalingStateHaveLocalOffer:
		return core.StateHaveLocalOffer
	case webrtc.SignalingStateHaveRemoteOffer:
		return core.StateHaveRemoteOffer
	case webrtc.SignalingStateClosed:
		return core.StateClosed
	case webrtc.SignalingStateStable:
		if c.pc.CurrentRemoteDescription() != nil {
			return core.StateStable
		}
	}
	return core.StateNew
}

// AddLocalTrack attaches a local track and drains its RTCP.
func (c *Connection) AddLocalTrack(track webrtc.TrackLocal) error {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return err
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

// CreateOffer requests audio and video even when nothing local is sent.
func (c *Connection) CreateOffer() (domain.Description, error) {
	if c.closed.IsBroken() {
		return domain.Description{}, ErrClosed
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		if c.hasTransceiver(kind) {
			continue
		}
		if _, err := c.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return domain.Description{}, err
		}
	}

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return domain.Description{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return domain.Description{}, err
	}
	return domain.Description{Type: domain.DescriptionOffer, SDP: offer.SDP}, nil
}

func (c *Connection) hasTransceiver(kind webrtc.RTPCodecType) bool {
	for _, t := range c.pc.GetTransceivers() {
		if t.Kind() == kind {
			return true
		}
	}
	return false
}

func (c *Connection) CreateAnswer() (domain.Description, error) {
	if c.closed.IsBroken() {
		return domain.Description{}, ErrClosed
	}
	if c.pc.SignalingState() != webrtc.SignalingStateHaveRemoteOffer {
		return domain.Description{}, core.ErrNoRemoteOffer
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.Description{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return domain.Description{}, err
	}
	return domain.Description{Type: domain.DescriptionAnswer, SDP: answer.SDP}, nil
}

// SetRemoteDescription applies d and then flushes candidates queued before it.
func (c *Connection) SetRemoteDescription(d domain.Description) error {
	if c.closed.IsBroken() {
		return ErrClosed
	}
	if err := d.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(string(d.Type)),
		SDP:  d.SDP,
	}); err != nil {
		return err
	}

	queued := c.pending
	c.pending = nil
	for _, ci := range queued {
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("participant", string(c.pid)).Msg("queued candidate rejected")
		}
	}
	if len(queued) > 0 {
		log.Debug().Str("module", "rtc").Str("participant", string(c.pid)).Int("candidates", len(queued)).Msg("flushed queued candidates")
	}
	return nil
}

// AddICECandidate queues cand until a remote description is set.
func (c *Connection) AddICECandidate(cand domain.Candidate) error {
	if c.closed.IsBroken() {
		return ErrClosed
	}
	ci := webrtc.ICECandidateInit{
		Candidate:        cand.Candidate,
		SDPMid:           cand.SDPMid,
		SDPMLineIndex:    cand.SDPMLineIndex,
		UsernameFragment: cand.UsernameFragment,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pc.RemoteDescription() == nil {
		c.pending = append(c.pending, ci)
		return nil
	}
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) pendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed.IsBroken() {
		c.mu.Unlock()
		return nil
	}
	c.closed.Break()
	streams := c.streams
	c.streams = map[string]*remoteStream{}
	c.pending = nil
	c.mu.Unlock()

	for _, s := range streams {
		for _, t := range s.Tracks() {
			t.Stop()
		}
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("participant", string(c.pid)).Msg("close error")
		return err
	}
	log.Info().Str("module", "rtc").Str("participant", string(c.pid)).Msg("closed")
	return nil
}
