package core

import "github.com/dkeye/voice-client/internal/domain"

// Surface is a UI-owned element able to render a media stream.
type Surface interface {
	ID() domain.SurfaceID
	Stream() MediaStream
	Bind(MediaStream)
	Play() error
	// Clear unbinds the stream and resets playback state. The surface stays in the layout.
	Clear()
	SetSpeaking(bool)
	Speaking() bool
	// Dynamic reports whether the surface was synthesized by the runtime rather than the layout.
	Dynamic() bool
}

type SurfaceProvider interface {
	Lookup(id domain.SurfaceID) (Surface, bool)
	// Create synthesizes a dynamic surface, or returns the existing one.
	Create(id domain.SurfaceID) Surface
	Remove(id domain.SurfaceID)
	List(prefix string) []Surface
}
