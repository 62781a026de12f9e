package core

import (
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/pion/webrtc/v4"
)

type NegotiationState int

const (
	StateNew NegotiationState = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
	StateStable
	StateClosed
)

func (s NegotiationState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteOffer:
		return "have-remote-offer"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type PeerEventKind int

const (
	EventCandidate PeerEventKind = iota
	EventTrack
	EventState
)

// PeerEvent is emitted by a NegotiationUnit towards the session controller.
type PeerEvent struct {
	Kind        PeerEventKind
	Participant domain.ParticipantID

	// EventCandidate
	Candidate domain.Candidate
	// EventTrack
	Track  MediaTrack
	Stream MediaStream
	// EventState, diagnostics only
	State string
}

// NegotiationUnit owns one media connection to exactly one remote participant.
type NegotiationUnit interface {
	Participant() domain.ParticipantID
	State() NegotiationState

	// Events yields outbound events until the unit is closed.
	Events() <-chan PeerEvent
	// Done is closed once the unit is closed.
	Done() <-chan struct{}

	CreateOffer() (domain.Description, error)
	CreateAnswer() (domain.Description, error)
	SetRemoteDescription(domain.Description) error
	// AddICECandidate never closes the connection on failure.
	AddICECandidate(domain.Candidate) error

	Close() error
	IsClosed() bool
}

type PeerFactory interface {
	NewUnit(pid domain.ParticipantID, iceServers []webrtc.ICEServer, local MediaStream) (NegotiationUnit, error)
}
