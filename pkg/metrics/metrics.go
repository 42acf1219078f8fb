package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeSkipped         = "skipped"
	OutcomeInvalidIdentity = "invalid_identity"
	OutcomeUnresolvable    = "unresolvable_enrollment"
	OutcomeRejected        = "rejected"
	OutcomeTransport       = "transport_error"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "checkin", Name: "runs_total", Help: "Number of identity check-in runs by outcome."},
		[]string{"outcome"},
	)
	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "checkin", Name: "step_duration_seconds", Help: "Latency of remote calls by step.", Buckets: prometheus.DefBuckets},
		[]string{"step"},
	)
	LastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "checkin", Name: "last_run_timestamp_seconds", Help: "Unix time the last batch finished."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RunsTotal)
	reg.MustRegister(StepDuration)
	reg.MustRegister(LastRun)
}

// ObserveStep records the latency of one remote call.
func ObserveStep(step string, d time.Duration) {
	StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// WriteTextfile dumps the gatherer in node_exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, g)
}
