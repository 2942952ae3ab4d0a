package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

type Metrics struct {
	EntryUpdates   *prometheus.CounterVec
	Recomputations *prometheus.CounterVec
}

// NewMetrics registers the calculator's collectors with reg. The active
// session gauge reads s on every scrape.
func NewMetrics(reg prometheus.Registerer, s session.Store) *Metrics {
	m := &Metrics{
		EntryUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradecalc_entry_updates_total",
			Help: "Score entries inserted or replaced, by course.",
		}, []string{"course"}),
		Recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradecalc_recomputations_total",
			Help: "Result recomputations, by surface.",
		}, []string{"surface"}),
	}
	reg.MustRegister(
		m.EntryUpdates,
		m.Recomputations,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gradecalc_active_sessions",
			Help: "Calculator sessions currently held in memory.",
		}, func() float64 { return float64(s.Len()) }),
	)
	return m
}
