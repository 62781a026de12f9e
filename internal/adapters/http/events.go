package http

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/domain"
)

const subscriberBuffer = 16

type Event struct {
	Name string
	Data any
}

// EventHub fans UI notifications out to SSE subscribers. Slow subscribers
// lose events rather than block the sender.
type EventHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan Event)}
}

func (h *EventHub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
}

func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *EventHub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("module", "adapters.http").Int("subscriber", id).Str("event", ev.Name).Msg("event dropped")
		}
	}
}

func (h *EventHub) OnKicked(reason string) {
	h.Publish(Event{Name: "kicked", Data: gin.H{"reason": reason}})
}

func (h *EventHub) OnRemoteTrack(pid domain.ParticipantID) {
	h.Publish(Event{Name: "remote-track", Data: gin.H{"participant": pid}})
}

func (h *EventHub) OnLocalIce(pid domain.ParticipantID, c domain.Candidate) {
	h.Publish(Event{Name: "local-ice", Data: gin.H{"participant": pid, "candidate": c}})
}
