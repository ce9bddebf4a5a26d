package planning

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fdg312/mealweek/internal/engine"
	"github.com/fdg312/mealweek/internal/solver"
)

// Metrics records engine runs as Prometheus series and log lines.
// It implements engine.Observer.
type Metrics struct {
	solves         *prometheus.CounterVec
	solveSeconds   prometheus.Histogram
	modelVariables prometheus.Gauge
}

// NewMetrics builds the collectors and registers them with reg when not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealweek",
			Subsystem: "plan",
			Name:      "solves_total",
			Help:      "Weekly plan solves by final solver status.",
		}, []string{"status"}),
		solveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mealweek",
			Subsystem: "plan",
			Name:      "solve_seconds",
			Help:      "Wall time of the solver call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		modelVariables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mealweek",
			Subsystem: "plan",
			Name:      "model_variables",
			Help:      "Binary variables in the most recently built model.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.solves, m.solveSeconds, m.modelVariables)
	}
	return m
}

func (m *Metrics) ModelBuilt(stats engine.ModelStats) {
	m.modelVariables.Set(float64(stats.Variables))
	log.Printf("INFO planning.model: variables=%d constraints=%d pools=%v", stats.Variables, stats.Constraints, stats.PoolSizes)
}

func (m *Metrics) Solved(status solver.Status, elapsed time.Duration) {
	m.solves.WithLabelValues(status.String()).Inc()
	m.solveSeconds.Observe(elapsed.Seconds())
	log.Printf("INFO planning.solve: status=%s duration=%s", status, elapsed.Round(time.Millisecond))
}
