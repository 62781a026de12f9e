// Package surface keeps display surfaces in memory for headless sessions and tests.
package surface

import (
	"sort"
	"strings"
	"sync"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/rs/zerolog/log"
)

type Memory struct {
	mu       sync.RWMutex
	surfaces map[domain.SurfaceID]*Surface
}

func NewMemory() *Memory {
	return &Memory{surfaces: make(map[domain.SurfaceID]*Surface)}
}

// Register adds a layout-owned surface. Layout surfaces are never removed by the runtime.
func (m *Memory) Register(id domain.SurfaceID) *Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.surfaces[id]; ok {
		return s
	}
	s := &Surface{id: id}
	m.surfaces[id] = s
	return s
}

func (m *Memory) Lookup(id domain.SurfaceID) (core.Surface, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.surfaces[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (m *Memory) Create(id domain.SurfaceID) core.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.surfaces[id]; ok {
		return s
	}
	s := &Surface{id: id, dynamic: true}
	m.surfaces[id] = s
	log.Info().Str("module", "adapters.surface").Str("surface", string(id)).Msg("synthesized surface")
	return s
}

func (m *Memory) Remove(id domain.SurfaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.surfaces, id)
}

func (m *Memory) List(prefix string) []core.Surface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.surfaces))
	for id := range m.surfaces {
		if strings.HasPrefix(string(id), prefix) {
			ids = append(ids, string(id))
		}
	}
	sort.Strings(ids)
	out := make([]core.Surface, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.surfaces[domain.SurfaceID(id)])
	}
	return out
}

// Surface is a headless display element.
type Surface struct {
	id      domain.SurfaceID
	dynamic bool

	mu       sync.RWMutex
	stream   core.MediaStream
	playing  bool
	speaking bool
	frames   int
}

func (s *Surface) ID() domain.SurfaceID { return s.id }
func (s *Surface) Dynamic() bool        { return s.dynamic }

func (s *Surface) Stream() core.MediaStream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream
}

func (s *Surface) Bind(ms core.MediaStream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = ms
}

func (s *Surface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = s.stream != nil
	return nil
}

func (s *Surface) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
	s.playing = false
}

func (s *Surface) SetSpeaking(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = v
	s.frames++
}

func (s *Surface) Speaking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speaking
}

// Frames counts SetSpeaking calls.
func (s *Surface) Frames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}
