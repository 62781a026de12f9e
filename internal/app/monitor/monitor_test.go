package monitor

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/adapters/audio"
	"github.com/dkeye/voice-client/internal/adapters/surface"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/metrics"
	"github.com/dkeye/voice-client/internal/testutil"
)

const waitFor = 2 * time.Second

type fixture struct {
	clock   *clock.Mock
	layout  *surface.Memory
	clicks  *audio.Interactions
	monitor *Monitor
}

func newFixture(suspended bool) *fixture {
	f := &fixture{
		clock:  clock.NewMock(),
		layout: surface.NewMemory(),
		clicks: audio.NewInteractions(),
	}
	f.monitor = New(f.layout, audio.Backend{StartSuspended: suspended}, f.clicks, f.clock, metrics.New(), Settings{})
	return f
}

func (f *fixture) bind(id domain.SurfaceID, amplitude float64) (*surface.Surface, *testutil.FakeTrack) {
	s := f.layout.Register(id)
	tr := testutil.NewFakeTrack(string(id)+"-a", domain.KindAudio, amplitude)
	s.Bind(testutil.NewFakeStream(string(id), tr))
	return s, tr
}

// advanceUntil moves the clock one frame at a time until cond holds.
func (f *fixture) advanceUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		f.clock.Add(DefaultFrameInterval)
		return cond()
	}, waitFor, time.Millisecond)
}

func TestStartPublishesFirstFrameSynchronously(t *testing.T) {
	f := newFixture(false)
	s, _ := f.bind(domain.LocalSurfaceID, 0.5)

	f.monitor.Start(domain.LocalSurfaceID)
	defer f.monitor.StopAll()

	assert.True(t, s.Speaking())
	assert.Equal(t, 1, s.Frames())
	assert.True(t, f.monitor.Tracked(domain.LocalSurfaceID))
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(false)
	s, _ := f.bind(domain.LocalSurfaceID, 0.5)

	f.monitor.Start(domain.LocalSurfaceID)
	f.monitor.Start(domain.LocalSurfaceID)
	defer f.monitor.StopAll()

	assert.Equal(t, 1, f.monitor.Len())
	assert.Equal(t, 1, s.Frames())
}

func TestStartWithoutAudioIsSilent(t *testing.T) {
	f := newFixture(false)

	f.monitor.Start("missing")

	f.layout.Register("empty")
	f.monitor.Start("empty")

	video := f.layout.Register("video-only")
	video.Bind(testutil.NewFakeStream("v", testutil.NewFakeTrack("v", domain.KindVideo, 0)))
	f.monitor.Start("video-only")

	assert.Zero(t, f.monitor.Len())
	assert.Zero(t, video.Frames())
}

func TestFrameLoopHoldsThenReleases(t *testing.T) {
	f := newFixture(false)
	s, tr := f.bind(domain.RemoteSurfaceID("bob"), 0.5)

	f.monitor.Start(s.ID())
	defer f.monitor.StopAll()
	require.True(t, s.Speaking())

	tr.SetAmplitude(0)
	start := f.clock.Now()
	f.advanceUntil(t, func() bool { return !s.Speaking() })

	assert.Greater(t, f.clock.Now().Sub(start), DefaultHold)
	assert.Greater(t, s.Frames(), 1)

	tr.SetAmplitude(0.4)
	f.advanceUntil(t, s.Speaking)
}

func TestStopEndsLoop(t *testing.T) {
	f := newFixture(false)
	s, _ := f.bind(domain.LocalSurfaceID, 0.5)

	f.monitor.Start(domain.LocalSurfaceID)
	f.monitor.Stop(domain.LocalSurfaceID)
	f.monitor.Stop(domain.LocalSurfaceID)

	frames := s.Frames()
	f.clock.Add(200 * time.Millisecond)
	assert.Equal(t, frames, s.Frames(), "no frames after stop")
	assert.False(t, f.monitor.Tracked(domain.LocalSurfaceID))
	assert.Zero(t, f.monitor.Len())

	f.monitor.Start(domain.LocalSurfaceID)
	assert.True(t, f.monitor.Tracked(domain.LocalSurfaceID), "can restart after stop")
	f.monitor.StopAll()
	assert.Zero(t, f.monitor.Len())
}

func TestSuspendedContextResumesOnInteraction(t *testing.T) {
	f := newFixture(true)
	s, _ := f.bind(domain.LocalSurfaceID, 0.5)

	f.monitor.Start(domain.LocalSurfaceID)
	defer f.monitor.StopAll()

	assert.False(t, s.Speaking(), "suspended context reads silence")
	assert.Equal(t, 1, f.clicks.Pending())

	assert.Equal(t, 1, f.clicks.Fire())
	assert.Zero(t, f.clicks.Fire(), "resume registration is one-shot")
	f.advanceUntil(t, s.Speaking)
}

func TestStopCancelsPendingResume(t *testing.T) {
	f := newFixture(true)
	f.bind(domain.LocalSurfaceID, 0.5)

	f.monitor.Start(domain.LocalSurfaceID)
	require.Equal(t, 1, f.clicks.Pending())

	f.monitor.Stop(domain.LocalSurfaceID)
	assert.Zero(t, f.clicks.Pending())
}
