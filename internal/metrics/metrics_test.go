package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromObserveSend(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.ObserveSend("Lab", "ok", 300*time.Millisecond, 15700*time.Millisecond)
	p.ObserveSend("Lab", "ok", 200*time.Millisecond, 15800*time.Millisecond)
	p.ObserveSend("Lab", "rejected", 100*time.Millisecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.sends.WithLabelValues("Lab", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sends.WithLabelValues("Lab", "rejected")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.delay.WithLabelValues("Lab")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.exchange))
}

func TestPromHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)
	p.ObserveSend("bedroom", "transport_error", time.Second, 16*time.Second)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `thingspeak_sends_total{channel="bedroom",result="transport_error"} 1`)
	assert.Contains(t, string(body), `thingspeak_free_api_delay_seconds{channel="bedroom"} 16`)
}
