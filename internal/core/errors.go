package core

import "errors"

var (
	ErrDeviceBusy         = errors.New("device busy")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNoPeer             = errors.New("no peer for participant")
	ErrNoRemoteOffer      = errors.New("no remote offer set")
	ErrCandidateRejected  = errors.New("candidate rejected")
	ErrMissingParams      = errors.New("missing-params")
	ErrMissingRoomID      = errors.New("missing-roomId")
	ErrNotAnalysable      = errors.New("track does not expose a waveform")
	ErrAudioContextClosed = errors.New("audio context closed")
)

var (
	ErrNoSurface    = errors.New("no such surface")
	ErrNoLocalMedia = errors.New("no local media")
)
