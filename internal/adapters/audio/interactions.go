package audio

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Interactions fans a user interaction out to one-shot listeners.
type Interactions struct {
	mu     sync.Mutex
	nextID uint64
	fns    map[uint64]func()
}

func NewInteractions() *Interactions {
	return &Interactions{fns: make(map[uint64]func())}
}

func (i *Interactions) OnceInteraction(fn func()) (cancel func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextID
	i.nextID++
	i.fns[id] = fn
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		delete(i.fns, id)
	}
}

// Fire runs and deregisters every pending listener.
func (i *Interactions) Fire() int {
	i.mu.Lock()
	fns := i.fns
	i.fns = make(map[uint64]func())
	i.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	if len(fns) > 0 {
		log.Debug().Str("module", "adapters.audio").Int("listeners", len(fns)).Msg("user interaction")
	}
	return len(fns)
}

func (i *Interactions) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.fns)
}
