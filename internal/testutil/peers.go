package testutil

import (
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/atomic"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
)

var ErrFakeRejected = errors.New("fake: rejected")

// FakeUnit is a scriptable NegotiationUnit.
type FakeUnit struct {
	pid    domain.ParticipantID
	events chan core.PeerEvent
	done   chan struct{}

	closeOnce sync.Once
	closes    atomic.Int32

	mu         sync.Mutex
	state      core.NegotiationState
	remote     *domain.Description
	candidates []domain.Candidate
	// RejectCandidates makes AddICECandidate fail.
	RejectCandidates bool
}

func NewFakeUnit(pid domain.ParticipantID) *FakeUnit {
	return &FakeUnit{
		pid:    pid,
		events: make(chan core.PeerEvent, 16),
		done:   make(chan struct{}),
	}
}

func (u *FakeUnit) Participant() domain.ParticipantID { return u.pid }
func (u *FakeUnit) Events() <-chan core.PeerEvent    { return u.events }
func (u *FakeUnit) Done() <-chan struct{}            { return u.done }

func (u *FakeUnit) State() core.NegotiationState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Emit pushes an event as if the connection produced it.
func (u *FakeUnit) Emit(ev core.PeerEvent) {
	ev.Participant = u.pid
	select {
	case u.events <- ev:
	case <-u.done:
	}
}

func (u *FakeUnit) CreateOffer() (domain.Description, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state = core.StateHaveLocalOffer
	return domain.Description{Type: domain.DescriptionOffer, SDP: "offer-" + string(u.pid)}, nil
}

func (u *FakeUnit) CreateAnswer() (domain.Description, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != core.StateHaveRemoteOffer {
		return domain.Description{}, core.ErrNoRemoteOffer
	}
	u.state = core.StateStable
	return domain.Description{Type: domain.DescriptionAnswer, SDP: "answer-" + string(u.pid)}, nil
}

func (u *FakeUnit) SetRemoteDescription(d domain.Description) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.remote = &d
	if d.Type == domain.DescriptionOffer {
		u.state = core.StateHaveRemoteOffer
	} else {
		u.state = core.StateStable
	}
	return nil
}

func (u *FakeUnit) AddICECandidate(c domain.Candidate) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.RejectCandidates {
		return ErrFakeRejected
	}
	u.candidates = append(u.candidates, c)
	return nil
}

func (u *FakeUnit) Remote() *domain.Description {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.remote
}

func (u *FakeUnit) Candidates() []domain.Candidate {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]domain.Candidate(nil), u.candidates...)
}

func (u *FakeUnit) Close() error {
	u.closes.Inc()
	u.closeOnce.Do(func() {
		u.mu.Lock()
		u.state = core.StateClosed
		u.mu.Unlock()
		close(u.done)
	})
	return nil
}

// Closes counts Close calls, including repeated ones.
func (u *FakeUnit) Closes() int { return int(u.closes.Load()) }

func (u *FakeUnit) IsClosed() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}

// FakePeerFactory hands out FakeUnits and remembers them.
type FakePeerFactory struct {
	Err error

	mu    sync.Mutex
	units []*FakeUnit
	ice   [][]webrtc.ICEServer
	local []core.MediaStream
}

func (f *FakePeerFactory) NewUnit(pid domain.ParticipantID, iceServers []webrtc.ICEServer, local core.MediaStream) (core.NegotiationUnit, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	u := NewFakeUnit(pid)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = append(f.units, u)
	f.ice = append(f.ice, iceServers)
	f.local = append(f.local, local)
	return u, nil
}

func (f *FakePeerFactory) Units() []*FakeUnit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeUnit(nil), f.units...)
}

// Last returns the most recently created unit, or nil.
func (f *FakePeerFactory) Last() *FakeUnit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.units) == 0 {
		return nil
	}
	return f.units[len(f.units)-1]
}

// LocalStreams returns the local stream passed to each NewUnit call.
func (f *FakePeerFactory) LocalStreams() []core.MediaStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.MediaStream(nil), f.local...)
}
