package core

import (
	"context"
	"fmt"

	"github.com/dkeye/voice-client/internal/domain"
)

// ControlClient issues session-control requests to the signaling server.
type ControlClient interface {
	KickParticipant(ctx context.Context, room domain.RoomID, pid domain.ParticipantID) error
	DeleteRoom(ctx context.Context, room domain.RoomID) error
}

// TransportError is a non-success response from the signaling server.
type TransportError struct {
	Status int
	Text   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("signaling request failed [%d]: %s", e.Status, e.Text)
}

// Notifier is the one-way UI notification sink.
type Notifier interface {
	OnKicked(reason string)
	OnRemoteTrack(pid domain.ParticipantID)
	OnLocalIce(pid domain.ParticipantID, c domain.Candidate)
}

const (
	ReasonKickedBySelf = "KickedBySelf"
	ReasonRoomClosed   = "RoomClosed"
)
