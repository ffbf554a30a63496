package escrow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the collectors updated by the Engine after every operation.
type Metrics struct {
	transitions *prometheus.CounterVec
	payouts     *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics returns the escrow collectors registered on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrow",
				Name:      "transitions_total",
				Help:      "Total number of wallet state transitions by target state.",
			},
			[]string{"to"},
		),
		payouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrow",
				Name:      "payout_total",
				Help:      "Total value paid out of wallets by payout kind.",
			},
			[]string{"kind"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escrow",
				Name:      "rejections_total",
				Help:      "Total number of rejected operations.",
			},
			[]string{"op"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "escrow",
				Name:      "operation_duration_seconds",
				Help:      "Duration of escrow operations.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to ~200ms
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.transitions, m.payouts, m.rejections, m.duration)
	}
	return m
}

func (m *Metrics) observe(op string, start time.Time, out *outcome, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.rejections.WithLabelValues(op).Inc()
		return
	}
	for _, ev := range out.events {
		m.transitions.WithLabelValues(ev.To.String()).Inc()
	}
	for _, p := range out.payouts {
		m.payouts.WithLabelValues(p.kind).Add(float64(p.amount))
	}
}
