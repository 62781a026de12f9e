package app

import (
	"sync"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog/log"
)

// Notifications delivers UI notifications asynchronously, in order, at most once.
// A failing sink is logged and never retried.
type Notifications struct {
	pool *workerpool.WorkerPool

	mu    sync.RWMutex
	sinks []core.Notifier
}

func NewNotifications(sinks ...core.Notifier) *Notifications {
	return &Notifications{
		pool:  workerpool.New(1),
		sinks: sinks,
	}
}

// Add registers a sink for notifications submitted afterwards.
func (n *Notifications) Add(sink core.Notifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

func (n *Notifications) OnKicked(reason string) {
	n.submit("OnKicked", func(s core.Notifier) { s.OnKicked(reason) })
}

func (n *Notifications) OnRemoteTrack(pid domain.ParticipantID) {
	n.submit("OnRemoteTrack", func(s core.Notifier) { s.OnRemoteTrack(pid) })
}

func (n *Notifications) OnLocalIce(pid domain.ParticipantID, c domain.Candidate) {
	n.submit("OnLocalIce", func(s core.Notifier) { s.OnLocalIce(pid, c) })
}

// Stop drains queued notifications.
func (n *Notifications) Stop() {
	n.pool.StopWait()
}

func (n *Notifications) submit(name string, fn func(core.Notifier)) {
	if n.pool.Stopped() {
		log.Warn().Str("module", "app.notify").Str("event", name).Msg("notification dropped after stop")
		return
	}
	n.mu.RLock()
	sinks := append([]core.Notifier(nil), n.sinks...)
	n.mu.RUnlock()
	n.pool.Submit(func() {
		for _, s := range sinks {
			deliver(name, s, fn)
		}
	})
}

func deliver(name string, s core.Notifier, fn func(core.Notifier)) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("module", "app.notify").Str("event", name).Interface("panic", r).Msg("notify failed")
		}
	}()
	fn(s)
}
