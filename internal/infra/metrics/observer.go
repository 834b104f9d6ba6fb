// internal/infra/metrics/observer.go
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// outcome label for runs that reach Done
const outcomeOK = "ok"

// Observer turns pipeline stage events into Prometheus series.
type Observer struct {
	reg *prometheus.Registry

	transitions *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ app.Observer = (*Observer)(nil)

// NewObserver registers the splforge series on a private registry so tests
// and multiple containers never collide on the global one.
func NewObserver() *Observer {
	o := &Observer{
		reg: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splforge_stage_transitions_total",
				Help: "Total number of pipeline stage entries",
			},
			[]string{"stage"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splforge_issuance_outcomes_total",
				Help: "Terminal issuance outcomes by error kind (ok on success)",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splforge_stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
	}
	o.reg.MustRegister(o.transitions, o.outcomes, o.duration)
	return o
}

func (o *Observer) OnStage(_ context.Context, ev app.Event) {
	o.transitions.WithLabelValues(string(ev.Stage)).Inc()
	if ev.Previous != "" {
		o.duration.WithLabelValues(string(ev.Previous)).Observe(ev.Elapsed.Seconds())
	}

	switch ev.Stage {
	case dom.StageDone:
		o.outcomes.WithLabelValues(outcomeOK).Inc()
	case dom.StageFailed:
		o.outcomes.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// RecordOutcome counts a terminal outcome that never reached the pipeline
// (for example a request refused by the serialization lock).
func (o *Observer) RecordOutcome(kind string) {
	o.outcomes.WithLabelValues(kind).Inc()
}

func (o *Observer) Registry() *prometheus.Registry { return o.reg }

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.reg, promhttp.HandlerOpts{})
}
