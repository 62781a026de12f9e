package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

func TestGetUserMedia(t *testing.T) {
	ms, err := Synthetic{ToneAmplitude: 0.5}.GetUserMedia(context.Background(), core.DefaultConstraints())
	require.NoError(t, err)
	require.Len(t, ms.AudioTracks(), 1)
	require.Len(t, ms.VideoTracks(), 1)
	assert.NotEmpty(t, ms.ID())

	audio := ms.AudioTracks()[0]
	_, ok := audio.(core.LocalTrack)
	assert.True(t, ok)
	assert.Equal(t, domain.KindAudio, audio.Kind())

	buf := make([]byte, 4)
	audio.(core.WaveformSource).ReadTimeDomain(buf)
	assert.Equal(t, byte(128+63), buf[0])

	audio.SetEnabled(false)
	audio.(core.WaveformSource).ReadTimeDomain(buf)
	assert.Equal(t, []byte{128, 128, 128, 128}, buf)

	for _, tr := range ms.Tracks() {
		tr.Stop()
		tr.Stop()
	}
	assert.True(t, audio.(*Track).Stopped())
}

func TestGetUserMediaFailures(t *testing.T) {
	ctx := context.Background()

	_, err := Synthetic{Denied: true}.GetUserMedia(ctx, core.DefaultConstraints())
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, err = Synthetic{VideoBusy: true}.GetUserMedia(ctx, core.DefaultConstraints())
	assert.ErrorIs(t, err, core.ErrDeviceBusy)

	ms, err := Synthetic{VideoBusy: true}.GetUserMedia(ctx, core.Constraints{Audio: true})
	require.NoError(t, err)
	assert.Empty(t, ms.VideoTracks())
	for _, tr := range ms.Tracks() {
		tr.Stop()
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Synthetic{}.GetUserMedia(cancelled, core.DefaultConstraints())
	assert.ErrorIs(t, err, context.Canceled)
}
