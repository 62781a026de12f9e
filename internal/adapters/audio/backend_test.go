package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

type toneTrack struct{ amp float64 }

func (t *toneTrack) ID() string                { return "tone" }
func (t *toneTrack) Kind() domain.MediaKind    { return domain.KindAudio }
func (t *toneTrack) Enabled() bool             { return true }
func (t *toneTrack) SetEnabled(bool)           {}
func (t *toneTrack) Stop()                     {}
func (t *toneTrack) ReadTimeDomain(dst []byte) { FillSquare(dst, t.amp) }

type mutedTrack struct{ toneTrack }

func TestContextLifecycle(t *testing.T) {
	ctx, err := Backend{StartSuspended: true}.NewContext()
	require.NoError(t, err)
	assert.Equal(t, core.AudioSuspended, ctx.State())

	an, err := ctx.NewAnalyser(&toneTrack{amp: 0.5}, 8, 0.8)
	require.NoError(t, err)
	buf := make([]byte, an.FFTSize())

	an.ByteTimeDomainData(buf)
	assert.Equal(t, []byte{128, 128, 128, 128, 128, 128, 128, 128}, buf, "suspended reads silence")

	require.NoError(t, ctx.Resume())
	an.ByteTimeDomainData(buf)
	assert.Equal(t, byte(128+63), buf[0])
	assert.Equal(t, byte(128-63), buf[1])

	require.NoError(t, ctx.Close())
	assert.ErrorIs(t, ctx.Resume(), core.ErrAudioContextClosed)
	_, err = ctx.NewAnalyser(&toneTrack{}, 8, 0.8)
	assert.ErrorIs(t, err, core.ErrAudioContextClosed)
}

func TestNewAnalyserRequiresWaveform(t *testing.T) {
	ctx, err := Backend{}.NewContext()
	require.NoError(t, err)

	var plain core.MediaTrack = struct{ core.MediaTrack }{&toneTrack{}}
	_, err = ctx.NewAnalyser(plain, 8, 0.8)
	assert.ErrorIs(t, err, core.ErrNotAnalysable)

	_, err = ctx.NewAnalyser(&mutedTrack{}, 8, 0.8)
	assert.NoError(t, err)
}

func TestInteractions(t *testing.T) {
	i := NewInteractions()
	calls := 0
	i.OnceInteraction(func() { calls++ })
	cancel := i.OnceInteraction(func() { calls += 10 })
	cancel()

	assert.Equal(t, 1, i.Fire())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, i.Fire(), "listeners run once")
	assert.Equal(t, 0, i.Pending())
}
