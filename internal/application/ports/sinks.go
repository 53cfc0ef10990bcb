package ports

import "github.com/stakewatch/validator-watcher/internal/application/domain"

// AlertSink receives human-readable alerts. Sinks are fire-and-forget: a
// failing sink is logged and never aborts tick processing.
type AlertSink interface {
	EmitAlert(severity domain.Severity, message string) error
}

// MetricsSink receives counter increments and gauge updates.
type MetricsSink interface {
	IncrementCounter(name string)
	SetGauge(name string, value float64)
}

// LivenessWriter signals a fully completed tick to external health checks.
type LivenessWriter interface {
	WriteLivenessMarker() error
}
