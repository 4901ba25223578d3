package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simulations_total",
		Help: "Total number of backtest simulations by strategy and status",
	}, []string{"strategy", "status"})

	SimulationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "simulation_duration_seconds",
		Help: "Wall time of a single backtest simulation",
	}, []string{"strategy"})

	CandidatesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candidates_evaluated_total",
		Help: "Total number of parameter candidates evaluated",
	}, []string{"strategy"})

	ReportsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_persisted_total",
		Help: "Total number of run reports written per sink",
	}, []string{"sink"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)
