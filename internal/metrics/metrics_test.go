package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.PeerCreated()
	m.PeerCreated()
	m.PeerClosed()
	m.Teardown(ProtocolSelfKick, ResultAlready)
	m.CleanupFailed("close_peers")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.peersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.peersActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.teardowns.WithLabelValues(ProtocolSelfKick, ResultAlready)))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "voice_client_cleanup_step_failures_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PeerCreated()
		m.PeerClosed()
		m.CandidateRejected()
		m.MonitorStarted()
		m.MonitorStopped()
		m.SpeakingChanged(true)
		m.Teardown(ProtocolRemoveRoom, ResultOK)
		m.CleanupFailed("x")
	})
	assert.Nil(t, m.Registry())
}
