package audio

import (
	"sync"

	"github.com/dkeye/voice-client/internal/core"
)

// Backend opens analysis contexts over tracks that expose a waveform.
type Backend struct {
	// StartSuspended emulates autoplay restrictions: contexts start suspended
	// until resumed by a user interaction.
	StartSuspended bool
}

func (b Backend) NewContext() (core.AudioContext, error) {
	state := core.AudioRunning
	if b.StartSuspended {
		state = core.AudioSuspended
	}
	return &Context{state: state}, nil
}

type Context struct {
	mu    sync.RWMutex
	state core.AudioContextState
}

func (c *Context) State() core.AudioContextState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == core.AudioClosed {
		return core.ErrAudioContextClosed
	}
	c.state = core.AudioRunning
	return nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = core.AudioClosed
	return nil
}

// NewAnalyser binds an analyser to the track's waveform. Smoothing only
// affects frequency-domain reads and is kept for parity.
func (c *Context) NewAnalyser(track core.MediaTrack, fftSize int, smoothing float64) (core.Analyser, error) {
	if c.State() == core.AudioClosed {
		return nil, core.ErrAudioContextClosed
	}
	src, ok := track.(core.WaveformSource)
	if !ok {
		return nil, core.ErrNotAnalysable
	}
	return &analyser{ctx: c, src: src, fftSize: fftSize, smoothing: smoothing}, nil
}

type analyser struct {
	ctx       *Context
	src       core.WaveformSource
	fftSize   int
	smoothing float64
}

func (a *analyser) FFTSize() int { return a.fftSize }

// ByteTimeDomainData reads silence unless the context is running.
func (a *analyser) ByteTimeDomainData(dst []byte) {
	if a.ctx.State() != core.AudioRunning {
		for i := range dst {
			dst[i] = 128
		}
		return
	}
	a.src.ReadTimeDomain(dst)
}

// FillSquare writes a square wave of the given linear amplitude (0..1)
// centred at 128. Its normalized RMS is close to amplitude.
func FillSquare(dst []byte, amplitude float64) {
	if amplitude < 0 {
		amplitude = 0
	}
	if amplitude > 1 {
		amplitude = 1
	}
	d := int(amplitude * 127)
	for i := range dst {
		if i%2 == 0 {
			dst[i] = byte(128 + d)
		} else {
			dst[i] = byte(128 - d)
		}
	}
}
