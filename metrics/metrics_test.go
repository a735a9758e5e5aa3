package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, "/metrics", c.Path())
	assert.NotNil(t, c.Registry())
}

func TestCollector_Broker(t *testing.T) {
	c := New(Config{Namespace: "test"})
	c.Outcome("purchase", "purchased")
	c.Outcome("purchase", "purchased")
	c.Orphaned("purchase")
	c.Stale("restore")
	c.SetPending("purchase", 3)
	c.ObserveWait("purchase", 2*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.outcomes.WithLabelValues("purchase", "purchased")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.orphaned.WithLabelValues("purchase")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.stale.WithLabelValues("restore")))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.pending.WithLabelValues("purchase")))
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Outcome("purchase", "failed")
		c.SetPending("restore", 1)
		c.Request("ping", true, time.Millisecond)
		c.Event("paywall_event", false)
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_Handler(t *testing.T) {
	c := New(Config{})
	c.Request("presentUpsell", true, 10*time.Millisecond)
	c.Event("make_purchase", true)

	recorder := httptest.NewRecorder()
	c.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paywall_rpc_requests_total{method="presentUpsell",success="true"} 1`)
	assert.Contains(t, string(body), `paywall_events_emitted_total{channel="make_purchase",delivered="true"} 1`)
}
