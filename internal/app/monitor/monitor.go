package monitor

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voice-client/internal/core"
	"github.com/dkeye/voice-client/internal/domain"
	"github.com/dkeye/voice-client/internal/metrics"
)

type Settings struct {
	FrameInterval time.Duration
	Threshold     float64
	Hold          time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.FrameInterval <= 0 {
		s.FrameInterval = DefaultFrameInterval
	}
	if s.Threshold <= 0 {
		s.Threshold = DefaultThreshold
	}
	if s.Hold <= 0 {
		s.Hold = DefaultHold
	}
	return s
}

// Monitor runs one analysis loop per tracked surface.
type Monitor struct {
	surfaces     core.SurfaceProvider
	audio        core.AudioBackend
	interactions core.InteractionSource
	clock        clock.Clock
	metrics      *metrics.Metrics
	settings     Settings

	mu      sync.Mutex
	entries map[domain.SurfaceID]*entry
}

func New(surfaces core.SurfaceProvider, audio core.AudioBackend, interactions core.InteractionSource, clk clock.Clock, m *metrics.Metrics, s Settings) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	return &Monitor{
		surfaces:     surfaces,
		audio:        audio,
		interactions: interactions,
		clock:        clk,
		metrics:      m,
		settings:     s.withDefaults(),
		entries:      make(map[domain.SurfaceID]*entry),
	}
}

type entry struct {
	surface  core.Surface
	ctx      core.AudioContext
	analyser core.Analyser
	detector *Detector
	buf      []byte
	metrics  *metrics.Metrics

	cancelResume func()
	ticker       *clock.Ticker
	stop         chan struct{}
	done         chan struct{}
}

// Start begins monitoring id. It is a no-op when id is already tracked or
// has no audio to analyse.
func (m *Monitor) Start(id domain.SurfaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; ok {
		return
	}

	surface, ok := m.surfaces.Lookup(id)
	if !ok {
		return
	}
	stream := surface.Stream()
	if stream == nil {
		return
	}
	tracks := stream.AudioTracks()
	if len(tracks) == 0 {
		log.Debug().Str("module", "app.monitor").Str("surface", string(id)).Msg("no audio track")
		return
	}

	actx, err := m.audio.NewContext()
	if err != nil {
		log.Warn().Err(err).Str("module", "app.monitor").Str("surface", string(id)).Msg("audio context")
		return
	}

	cancelResume := func() {}
	if actx.State() == core.AudioSuspended && m.interactions != nil {
		cancelResume = m.interactions.OnceInteraction(func() {
			if err := actx.Resume(); err != nil {
				log.Debug().Err(err).Str("module", "app.monitor").Str("surface", string(id)).Msg("resume")
			}
		})
	}

	an, err := actx.NewAnalyser(tracks[0], FFTSize, Smoothing)
	if err != nil {
		cancelResume()
		_ = actx.Close()
		log.Warn().Err(err).Str("module", "app.monitor").Str("surface", string(id)).Msg("analyser")
		return
	}

	e := &entry{
		surface:      surface,
		ctx:          actx,
		analyser:     an,
		detector:     NewDetector(m.settings.Threshold, m.settings.Hold),
		buf:          make([]byte, an.FFTSize()),
		metrics:      m.metrics,
		cancelResume: cancelResume,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	e.frame(m.clock.Now())
	e.ticker = m.clock.Ticker(m.settings.FrameInterval)
	go e.loop()

	m.entries[id] = e
	m.metrics.MonitorStarted()
	log.Info().Str("module", "app.monitor").Str("surface", string(id)).Str("track", tracks[0].ID()).Msg("monitor started")
}

func (e *entry) loop() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case now := <-e.ticker.C:
			e.frame(now)
		}
	}
}

func (e *entry) frame(now time.Time) {
	e.analyser.ByteTimeDomainData(e.buf)
	was := e.detector.Speaking()
	speaking := e.detector.Observe(RMS(e.buf), now)
	if speaking != was {
		e.metrics.SpeakingChanged(speaking)
	}
	e.surface.SetSpeaking(speaking)
}

// Stop ends monitoring of id. No frame is published after Stop returns.
func (m *Monitor) Stop(id domain.SurfaceID) {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.shutdown(id, e)
}

func (m *Monitor) shutdown(id domain.SurfaceID, e *entry) {
	close(e.stop)
	e.ticker.Stop()
	<-e.done
	e.cancelResume()
	if err := e.ctx.Close(); err != nil {
		log.Debug().Err(err).Str("module", "app.monitor").Str("surface", string(id)).Msg("close audio context")
	}
	m.metrics.MonitorStopped()
	log.Info().Str("module", "app.monitor").Str("surface", string(id)).Msg("monitor stopped")
}

func (m *Monitor) StopAll() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[domain.SurfaceID]*entry)
	m.mu.Unlock()
	for id, e := range entries {
		m.shutdown(id, e)
	}
}

func (m *Monitor) Tracked(id domain.SurfaceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}

func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
