package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanMetrics_Record(t *testing.T) {
	m := NewScanMetrics()

	m.Combination("cl", OutcomeMatched)
	m.Combination("cl", OutcomeMatched)
	m.Combination("cl", OutcomeStale)
	m.ScanFinished("cl", 250*time.Millisecond, 2)
	m.ScanFailed("ng")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Combinations.WithLabelValues("cl", OutcomeMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Combinations.WithLabelValues("cl", OutcomeStale)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Matches.WithLabelValues("cl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("ng")))
}

func TestScanMetrics_NilIsNoop(t *testing.T) {
	var m *ScanMetrics

	assert.NotPanics(t, func() {
		m.Combination("cl", OutcomeEmpty)
		m.ScanFinished("cl", time.Second, 0)
		m.ScanFailed("cl")
	})
}

func TestScanMetrics_Handler(t *testing.T) {
	m := NewScanMetrics()
	m.Combination("cl", OutcomeFiltered)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spreadscan_combinations_total{outcome="filtered",scan="cl"} 1`)
}
