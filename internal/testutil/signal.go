package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dkeye/voice-client/internal/domain"
)

type MockControl struct {
	mock.Mock
}

func (m *MockControl) KickParticipant(ctx context.Context, room domain.RoomID, pid domain.ParticipantID) error {
	args := m.Called(ctx, room, pid)
	return args.Error(0)
}

func (m *MockControl) DeleteRoom(ctx context.Context, room domain.RoomID) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

type IceNote struct {
	Participant domain.ParticipantID
	Candidate   domain.Candidate
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu     sync.Mutex
	kicked []string
	tracks []domain.ParticipantID
	ice    []IceNote
	OnKick func(reason string)
}

func (r *RecordingNotifier) OnKicked(reason string) {
	r.mu.Lock()
	r.kicked = append(r.kicked, reason)
	fn := r.OnKick
	r.mu.Unlock()
	if fn != nil {
		fn(reason)
	}
}

func (r *RecordingNotifier) OnRemoteTrack(pid domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = append(r.tracks, pid)
}

func (r *RecordingNotifier) OnLocalIce(pid domain.ParticipantID, c domain.Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ice = append(r.ice, IceNote{Participant: pid, Candidate: c})
}

func (r *RecordingNotifier) Kicked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.kicked...)
}

func (r *RecordingNotifier) RemoteTracks() []domain.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ParticipantID(nil), r.tracks...)
}

func (r *RecordingNotifier) Ice() []IceNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]IceNote(nil), r.ice...)
}
