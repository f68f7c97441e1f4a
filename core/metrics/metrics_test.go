package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Update("callback")
	m.Update("callback")
	m.Transition("", "cleared")
	m.Delivery("document", errors.New("boom"))
	m.Deletion(nil)
	m.Send("send_text", "ok")
	m.RateLimited()
	m.Handled("text", "ok", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("none", "cleared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("document", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Update("x")
	m.Panic()
	m.Deletion(errors.New("x"))
}
