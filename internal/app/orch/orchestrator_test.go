package orch

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/adapters/surface"
	"github.com/dkeye/voice-client/internal/app"
	"github.com/dkeye/voice-client/internal/app/monitor"
	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/metrics"
	"github.com/dkeye/voice-client/internal/testutil"
)

const waitFor = 2 * time.Second

type fixture struct {
	o       *Orchestrator
	peers   *testutil.FakePeerFactory
	control *testutil.MockControl
	notes   *testutil.RecordingNotifier
	layout  *surface.Memory
	monitor *monitor.Monitor
	local   *testutil.FakeStream
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		peers:   &testutil.FakePeerFactory{},
		control: &testutil.MockControl{},
		notes:   &testutil.RecordingNotifier{},
		layout:  surface.NewMemory(),
		local:   testutil.AVStream("local-stream", 0.5),
	}
	f.layout.Register(domain.LocalSurfaceID)
	f.monitor = monitor.New(f.layout, audio.Backend{}, nil, clock.NewMock(), nil, monitor.Settings{})
	devices := &testutil.FakeDevices{Fn: func(core.Constraints) (core.MediaStream, error) {
		return f.local, nil
	}}
	f.o = &Orchestrator{
		Registry:    app.NewRegistry(),
		Capture:     app.NewCaptureManager(devices),
		Monitor:     f.monitor,
		Surfaces:    f.layout,
		Peers:       f.peers,
		Control:     f.control,
		Notify:      f.notes,
		Metrics:     metrics.New(),
		SurfaceWait: 150 * time.Millisecond,
		SurfacePoll: 5 * time.Millisecond,
	}
	t.Cleanup(f.monitor.StopAll)
	return f
}

// joined acquires media, attaches the local surface and creates peers.
func (f *fixture) joined(t *testing.T, pids ...domain.ParticipantID) {
	t.Helper()
	_, err := f.o.AcquireLocalMedia(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, f.o.AttachLocalDisplay(domain.LocalSurfaceID))
	for _, pid := range pids {
		require.NoError(t, f.o.CreatePeer(pid, nil))
	}
}

func (f *fixture) unit(t *testing.T, pid domain.ParticipantID) *testutil.FakeUnit {
	t.Helper()
	u, ok := f.o.Registry.Get(pid)
	require.True(t, ok)
	return u.(*testutil.FakeUnit)
}

func remoteStream(pid domain.ParticipantID) (*testutil.FakeTrack, *testutil.FakeStream) {
	tr := testutil.NewFakeTrack(string(pid)+"-a", domain.KindAudio, 0.5)
	return tr, testutil.NewFakeStream(string(pid), tr)
}

func TestCreatePeer(t *testing.T) {
	f := newFixture(t)

	err := f.o.CreatePeer("", nil)
	assert.ErrorIs(t, err, core.ErrMissingParams)
	assert.Empty(t, f.peers.Units())

	f.joined(t, "bob")
	assert.Equal(t, []domain.ParticipantID{"bob"}, f.o.Registry.IDs())
	require.Len(t, f.peers.LocalStreams(), 1)
	assert.Same(t, f.local, f.peers.LocalStreams()[0], "local tracks are attached")
}

func TestNegotiationRequiresPeer(t *testing.T) {
	f := newFixture(t)

	_, err := f.o.MakeOffer("ghost")
	assert.ErrorIs(t, err, core.ErrNoPeer)
	_, err = f.o.MakeAnswer("ghost")
	assert.ErrorIs(t, err, core.ErrNoPeer)
	assert.ErrorIs(t, f.o.SetRemoteDescription("ghost", domain.Description{}), core.ErrNoPeer)
	assert.ErrorIs(t, f.o.AddIceCandidate("ghost", domain.Candidate{}), core.ErrNoPeer)
}

func TestOfferAnswerFlow(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")

	_, err := f.o.MakeAnswer("bob")
	assert.ErrorIs(t, err, core.ErrNoRemoteOffer)

	require.NoError(t, f.o.SetRemoteDescription("bob", domain.Description{Type: domain.DescriptionOffer, SDP: "x"}))
	answer, err := f.o.MakeAnswer("bob")
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptionAnswer, answer.Type)
	assert.Equal(t, core.StateStable, f.unit(t, "bob").State())
}

func TestCandidateRejectionIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	u := f.unit(t, "bob")

	require.NoError(t, f.o.AddIceCandidate("bob", domain.Candidate{Candidate: "early"}))
	assert.Len(t, u.Candidates(), 1)

	u.RejectCandidates = true
	err := f.o.AddIceCandidate("bob", domain.Candidate{Candidate: "bad"})
	assert.ErrorIs(t, err, core.ErrCandidateRejected)
	assert.False(t, u.IsClosed())
	assert.True(t, f.o.Registry.Owns("bob", u))
}

func TestClosePeerIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	u := f.unit(t, "bob")

	f.o.ClosePeer("bob")
	f.o.ClosePeer("bob")
	f.o.ClosePeer("never-existed")

	assert.Equal(t, 1, u.Closes())
	assert.Zero(t, f.o.Registry.Len())
}

func TestClosePeerRemovesOnlyDynamicSurfaces(t *testing.T) {
	f := newFixture(t)
	f.layout.Register(domain.RemoteSurfaceID("bob"))
	f.layout.Create(domain.RemoteSurfaceID("carol"))
	f.joined(t, "bob", "carol")

	f.o.ClosePeer("bob")
	f.o.ClosePeer("carol")

	_, ok := f.layout.Lookup(domain.RemoteSurfaceID("bob"))
	assert.True(t, ok, "layout surface survives")
	_, ok = f.layout.Lookup(domain.RemoteSurfaceID("carol"))
	assert.False(t, ok, "synthesized surface is removed")
}

func TestLocalCandidatesAreForwarded(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")

	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventCandidate, Candidate: domain.Candidate{Candidate: "c1"}})
	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventState, State: "connected"})

	require.Eventually(t, func() bool { return len(f.notes.Ice()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, testutil.IceNote{Participant: "bob", Candidate: domain.Candidate{Candidate: "c1"}}, f.notes.Ice()[0])
}

func TestRemoteTrackWaitsForLayoutSurface(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	tr, stream := remoteStream("bob")

	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventTrack, Track: tr, Stream: stream})
	time.Sleep(20 * time.Millisecond)
	s := f.layout.Register(domain.RemoteSurfaceID("bob"))

	require.Eventually(t, func() bool { return len(f.notes.RemoteTracks()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Same(t, stream, s.Stream())
	assert.True(t, s.Playing())
	assert.False(t, s.Dynamic())
	assert.True(t, f.monitor.Tracked(s.ID()))
	assert.True(t, s.Speaking())
}

func TestRemoteTrackSynthesizesSurfaceAfterWait(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	tr, stream := remoteStream("bob")

	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventTrack, Track: tr, Stream: stream})

	require.Eventually(t, func() bool { return len(f.notes.RemoteTracks()) == 1 }, waitFor, 5*time.Millisecond)
	s, ok := f.layout.Lookup(domain.RemoteSurfaceID("bob"))
	require.True(t, ok)
	assert.True(t, s.Dynamic())
	assert.Same(t, stream, s.Stream())
}

func TestRemoteTrackForClosedPeerIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	tr, stream := remoteStream("bob")

	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventTrack, Track: tr, Stream: stream})
	f.o.ClosePeer("bob")

	assert.Never(t, func() bool {
		_, ok := f.layout.Lookup(domain.RemoteSurfaceID("bob"))
		return ok
	}, 300*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, f.notes.RemoteTracks())
}

// closingSurfaces closes pid from another goroutine while a surface is being
// synthesized for it, giving the close a bounded head start.
type closingSurfaces struct {
	*surface.Memory
	o      *Orchestrator
	pid    domain.ParticipantID
	closed chan struct{}
}

func (c *closingSurfaces) Create(id domain.SurfaceID) core.Surface {
	go func() {
		c.o.ClosePeer(c.pid)
		close(c.closed)
	}()
	select {
	case <-c.closed:
	case <-time.After(50 * time.Millisecond):
	}
	return c.Memory.Create(id)
}

func TestClosePeerDuringSurfaceSynthesisLeavesNothing(t *testing.T) {
	f := newFixture(t)
	f.joined(t, "bob")
	closing := &closingSurfaces{Memory: f.layout, o: f.o, pid: "bob", closed: make(chan struct{})}
	f.o.Surfaces = closing
	tr, stream := remoteStream("bob")
	sid := domain.RemoteSurfaceID("bob")

	f.unit(t, "bob").Emit(core.PeerEvent{Kind: core.EventTrack, Track: tr, Stream: stream})

	select {
	case <-closing.closed:
	case <-time.After(waitFor):
		t.Fatal("peer was never closed")
	}
	assert.Zero(t, f.o.Registry.Len())
	_, ok := f.layout.Lookup(sid)
	assert.False(t, ok, "synthesized surface outlived its peer")
	assert.False(t, f.monitor.Tracked(sid), "monitor outlived its peer")
}

func TestAttachLocalDisplay(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.o.AttachLocalDisplay(domain.LocalSurfaceID), core.ErrNoLocalMedia)

	_, err := f.o.AcquireLocalMedia(context.Background(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.o.AttachLocalDisplay("nowhere"), core.ErrNoSurface)

	require.NoError(t, f.o.AttachLocalDisplay(domain.LocalSurfaceID))
	s, _ := f.layout.Lookup(domain.LocalSurfaceID)
	assert.Same(t, f.local, s.Stream())
	assert.True(t, f.monitor.Tracked(domain.LocalSurfaceID))

	f.o.SetTrackEnabled(domain.KindVideo, false)
	assert.False(t, f.local.VideoTracks()[0].Enabled())
}
