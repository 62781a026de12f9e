package rtc

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

var testICE = []webrtc.ICEServer{{URLs: []string{"stun:127.0.0.1:3478"}}}

func newTestUnit(t *testing.T, pid domain.ParticipantID) *Connection {
	t.Helper()
	api, err := NewAPI(nil)
	require.NoError(t, err)
	f := &Factory{API: api}
	u, err := f.NewUnit(pid, testICE, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Close() })
	return u.(*Connection)
}

func TestOfferAnswer(t *testing.T) {
	a := newTestUnit(t, "bob")
	b := newTestUnit(t, "alice")
	assert.Equal(t, core.StateNew, a.State())

	offer, err := a.CreateOffer()
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptionOffer, offer.Type)
	assert.Contains(t, offer.SDP, "m=audio")
	assert.Contains(t, offer.SDP, "m=video")
	assert.Equal(t, core.StateHaveLocalOffer, a.State())

	require.NoError(t, b.SetRemoteDescription(offer))
	assert.Equal(t, core.StateHaveRemoteOffer, b.State())

	answer, err := b.CreateAnswer()
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptionAnswer, answer.Type)
	assert.Equal(t, core.StateStable, b.State())

	require.NoError(t, a.SetRemoteDescription(answer))
	assert.Equal(t, core.StateStable, a.State())
}

func TestCreateAnswerWithoutOffer(t *testing.T) {
	u := newTestUnit(t, "bob")
	_, err := u.CreateAnswer()
	assert.ErrorIs(t, err, core.ErrNoRemoteOffer)
	assert.False(t, u.IsClosed(), "failure must not close the unit")
}

func TestSetRemoteDescriptionRejectsBadSDP(t *testing.T) {
	u := newTestUnit(t, "bob")
	err := u.SetRemoteDescription(domain.Description{Type: domain.DescriptionOffer, SDP: "garbage"})
	assert.ErrorIs(t, err, domain.ErrBadPayload)
	assert.Equal(t, core.StateNew, u.State())
}

func TestCandidatesQueuedUntilRemoteDescription(t *testing.T) {
	a := newTestUnit(t, "bob")
	b := newTestUnit(t, "alice")

	mid := "0"
	cand := domain.Candidate{
		Candidate: "candidate:1 1 udp 2130706431 192.168.1.2 50000 typ host",
		SDPMid:    &mid,
	}
	require.NoError(t, b.AddICECandidate(cand))
	require.NoError(t, b.AddICECandidate(cand))
	assert.Equal(t, 2, b.pendingLen())

	offer, err := a.CreateOffer()
	require.NoError(t, err)
	require.NoError(t, b.SetRemoteDescription(offer))
	assert.Equal(t, 0, b.pendingLen())
	assert.False(t, b.IsClosed())
}

func TestCloseIsIdempotent(t *testing.T) {
	u := newTestUnit(t, "bob")

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
	assert.True(t, u.IsClosed())
	assert.Equal(t, core.StateClosed, u.State())

	select {
	case <-u.Done():
	default:
		t.Fatal("done not closed")
	}

	_, err := u.CreateOffer()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, u.AddICECandidate(domain.Candidate{}), ErrClosed)
}

func TestLevelToAmplitude(t *testing.T) {
	assert.InDelta(t, 1.0, LevelToAmplitude(0), 1e-9)
	assert.InDelta(t, 0.1, LevelToAmplitude(20), 1e-9)
	assert.InDelta(t, 0.01, LevelToAmplitude(40), 1e-9)
	assert.Zero(t, LevelToAmplitude(127))
}

type stubTrack struct {
	id   string
	kind domain.MediaKind
}

func (s stubTrack) ID() string             { return s.id }
func (s stubTrack) Kind() domain.MediaKind { return s.kind }
func (s stubTrack) Enabled() bool          { return true }
func (s stubTrack) SetEnabled(bool)        {}
func (s stubTrack) Stop()                  {}

func TestRemoteStreamGroupsByKind(t *testing.T) {
	s := &remoteStream{id: "s1"}
	s.add(stubTrack{id: "a", kind: domain.KindAudio})
	s.add(stubTrack{id: "v", kind: domain.KindVideo})

	assert.Len(t, s.Tracks(), 2)
	require.Len(t, s.AudioTracks(), 1)
	assert.Equal(t, "a", s.AudioTracks()[0].ID())
	require.Len(t, s.VideoTracks(), 1)
}

func TestEmitDropsWhenNobodyDrains(t *testing.T) {
	u := newTestUnit(t, "bob")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < eventBuffer+10; i++ {
			u.emit(core.PeerEvent{Kind: core.EventState, State: "connecting"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on a full buffer")
	}
	assert.Len(t, u.events, eventBuffer)

	require.NoError(t, u.Close())
	u.emit(core.PeerEvent{Kind: core.EventState, State: "closed"})
	assert.Len(t, u.events, eventBuffer)
}
