package core

type AudioContextState string

const (
	AudioRunning   AudioContextState = "running"
	AudioSuspended AudioContextState = "suspended"
	AudioClosed    AudioContextState = "closed"
)

// Analyser reads the current time-domain window of one audio track.
type Analyser interface {
	FFTSize() int
	// ByteTimeDomainData fills dst with samples centred at 128.
	ByteTimeDomainData(dst []byte)
}

// AudioContext owns audio processing resources and must be closed.
type AudioContext interface {
	State() AudioContextState
	Resume() error
	Close() error
	NewAnalyser(track MediaTrack, fftSize int, smoothing float64) (Analyser, error)
}

type AudioBackend interface {
	NewContext() (AudioContext, error)
}

// InteractionSource fires registered callbacks once on the next user interaction.
type InteractionSource interface {
	OnceInteraction(fn func()) (cancel func())
}
