// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/vallox-bridge/internal/device"
	"github.com/tamzrod/vallox-bridge/internal/poller"
)

func newMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	return m, reg
}

func TestObserve_Poll(t *testing.T) {
	m, _ := newMetrics(t)

	m.Observe(poller.PollResult{
		UnitID:   "ak",
		Took:     1500 * time.Millisecond,
		Snapshot: device.Snapshot{"fanspeed": 3, "power_state": true, "fault_text": "-"},
		Pending:  1,
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.values.WithLabelValues("ak", "fanspeed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.values.WithLabelValues("ak", "power_state")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.duration.WithLabelValues("ak")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("ak", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pending.WithLabelValues("ak")))
	// strings are not exported
	assert.Equal(t, 2, testutil.CollectAndCount(m.values))
}

func TestObserve_FailedPoll(t *testing.T) {
	m, _ := newMetrics(t)

	m.Observe(poller.PollResult{UnitID: "ak", Snapshot: device.Snapshot{"fanspeed": 2}})
	m.Observe(poller.PollResult{UnitID: "ak", Err: errors.New("x"), Stale: true, Snapshot: device.Snapshot{"fanspeed": 7}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("ak", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("ak")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.values.WithLabelValues("ak", "fanspeed")))
}

func TestObserve_WriteDoesNotCountAsPoll(t *testing.T) {
	m, _ := newMetrics(t)

	m.Observe(poller.PollResult{UnitID: "ak", Written: "fanspeed", Snapshot: device.Snapshot{"fanspeed": 5}})
	m.ObserveWrite("ak", true)
	m.ObserveWrite("ak", false)

	assert.Equal(t, 0, testutil.CollectAndCount(m.polls))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.values.WithLabelValues("ak", "fanspeed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("ak", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("ak", "false")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	m, reg := newMetrics(t)
	m.ObserveWrite("ak", true)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `vallox_writes_total{result="true",unit="ak"} 1`))
}
