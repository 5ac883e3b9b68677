// internal/metrics/metrics.go

// Package metrics exposes device values and poll health to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/vallox-bridge/internal/poller"
)

type Metrics struct {
	values   *prometheus.GaugeVec
	polls    *prometheus.CounterVec
	writes   *prometheus.CounterVec
	duration *prometheus.GaugeVec
	pending  *prometheus.GaugeVec
	stale    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vallox_value",
			Help: "Last decoded value per variable; booleans are 0/1.",
		}, []string{"unit", "variable"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vallox_polls_total",
			Help: "Full read cycles by result.",
		}, []string{"unit", "result"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vallox_writes_total",
			Help: "Variable writes by result.",
		}, []string{"unit", "result"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vallox_poll_duration_seconds",
			Help: "Duration of the last full read.",
		}, []string{"unit"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vallox_pending_writes",
			Help: "Writes not yet confirmed by a poll.",
		}, []string{"unit"}),
		stale: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vallox_snapshot_stale",
			Help: "1 while the published snapshot comes from an earlier poll.",
		}, []string{"unit"}),
	}

	for _, c := range []prometheus.Collector{m.values, m.polls, m.writes, m.duration, m.pending, m.stale} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one published result. It is meant to be a poller subscriber.
func (m *Metrics) Observe(res poller.PollResult) {
	m.pending.WithLabelValues(res.UnitID).Set(float64(res.Pending))

	if res.Written == "" {
		result := "ok"
		if res.Err != nil {
			result = "failed"
		}
		m.polls.WithLabelValues(res.UnitID, result).Inc()
		m.stale.WithLabelValues(res.UnitID).Set(boolFloat(res.Stale))
		if res.Err != nil {
			return
		}
		m.duration.WithLabelValues(res.UnitID).Set(res.Took.Seconds())
	}

	for name, v := range res.Snapshot {
		f, ok := numeric(v)
		if !ok {
			continue
		}
		m.values.WithLabelValues(res.UnitID, name).Set(f)
	}
}

func (m *Metrics) ObserveWrite(unit string, ok bool) {
	m.writes.WithLabelValues(unit, strconv.FormatBool(ok)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case bool:
		return boolFloat(n), true
	}
	return 0, false
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
