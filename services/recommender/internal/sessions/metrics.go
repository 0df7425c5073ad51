package sessions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recs_active_sessions",
		Help: "Recommendation sessions currently held in memory",
	})

	evictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_session_evictions_total",
			Help: "Sessions torn down, by reason",
		},
		[]string{"reason"},
	)
)
