package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/testutil"
)

type panicNotifier struct{ core.Notifier }

func (panicNotifier) OnKicked(string) { panic("sink down") }

func TestNotificationsDeliverInOrder(t *testing.T) {
	rec := &testutil.RecordingNotifier{}
	n := NewNotifications(panicNotifier{}, rec)
	late := &testutil.RecordingNotifier{}
	n.Add(late)

	n.OnRemoteTrack("a")
	n.OnKicked(core.ReasonKickedBySelf)
	n.OnLocalIce("b", domain.Candidate{Candidate: "x"})
	n.Stop()

	assert.Equal(t, []domain.ParticipantID{"a"}, rec.RemoteTracks())
	assert.Equal(t, []string{core.ReasonKickedBySelf}, rec.Kicked(), "a panicking sink does not block the others")
	assert.Len(t, rec.Ice(), 1)
	assert.Equal(t, []string{core.ReasonKickedBySelf}, late.Kicked())

	n.OnKicked("after")
	assert.Len(t, rec.Kicked(), 1, "dropped after stop")
}
