package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/testutil"
)

func TestAcquireOnce(t *testing.T) {
	dev := &testutil.FakeDevices{Fn: func(core.Constraints) (core.MediaStream, error) {
		return testutil.AVStream("s1", 0), nil
	}}
	m := NewCaptureManager(dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Acquire(context.Background(), nil)
			assert.NoError(t, err)
			assert.Equal(t, "s1", res.StreamID)
		}()
	}
	wg.Wait()

	require.Len(t, dev.Calls(), 1)
	assert.Equal(t, core.DefaultConstraints(), dev.Calls()[0])
}

func TestAcquireDegradesOnBusyCamera(t *testing.T) {
	dev := &testutil.FakeDevices{Fn: func(c core.Constraints) (core.MediaStream, error) {
		if c.Video {
			return nil, core.ErrDeviceBusy
		}
		return testutil.NewFakeStream("mic", testutil.NewFakeTrack("a", domain.KindAudio, 0)), nil
	}}
	m := NewCaptureManager(dev)

	res, err := m.Acquire(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, CaptureResult{StreamID: "mic", Degraded: true, Warning: WarningVideoUnavailable}, res)
	assert.True(t, m.Degraded())
	assert.Equal(t, []core.Constraints{{Audio: true, Video: true}, {Audio: true}}, dev.Calls())
}

func TestAcquireErrors(t *testing.T) {
	boom := errors.New("boom")
	dev := &testutil.FakeDevices{Fn: func(c core.Constraints) (core.MediaStream, error) {
		if c.Video {
			return nil, core.ErrDeviceBusy
		}
		return nil, boom
	}}
	m := NewCaptureManager(dev)

	_, err := m.Acquire(context.Background(), nil)
	assert.ErrorIs(t, err, boom, "retry failure is surfaced")
	assert.Nil(t, m.Stream())

	denied := &testutil.FakeDevices{Fn: func(core.Constraints) (core.MediaStream, error) {
		return nil, core.ErrPermissionDenied
	}}
	m = NewCaptureManager(denied)
	_, err = m.Acquire(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	assert.Len(t, denied.Calls(), 1, "no retry for other failures")
}

func TestReleaseAndToggle(t *testing.T) {
	s := testutil.AVStream("s1", 0)
	m := NewCaptureManager(&testutil.FakeDevices{Fn: func(core.Constraints) (core.MediaStream, error) {
		return s, nil
	}})

	m.Release()
	m.SetTrackEnabled(domain.KindAudio, false)

	_, err := m.Acquire(context.Background(), &core.Constraints{Audio: true, Video: true})
	require.NoError(t, err)

	m.SetTrackEnabled(domain.KindVideo, false)
	assert.False(t, s.VideoTracks()[0].Enabled())
	assert.True(t, s.AudioTracks()[0].Enabled())

	m.Release()
	m.Release()
	assert.Nil(t, m.Stream())
	for _, tr := range s.Tracks() {
		assert.Equal(t, 1, tr.(*testutil.FakeTrack).Stops())
	}
}
