package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// PrometheusSink implements ports.MetricsSink with a fixed set of
// pre-registered collectors. Unknown metric names are dropped with a debug
// log rather than registered on the fly.
type PrometheusSink struct {
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

func NewPrometheusSink() *PrometheusSink {
	s := &PrometheusSink{
		registry: prometheus.NewRegistry(),
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}

	counterHelp := map[string]string{
		domain.MetricMissedBlockProposals:     "Block proposals missed by watched validators",
		domain.MetricMissedAttestations:       "Per-epoch attestation misses among watched validators",
		domain.MetricDoubleMissedAttestations: "Watched validators missing attestations in two consecutive epochs",
		domain.MetricSlashedWatchedValidators: "Newly slashed watched validators",
	}
	for name, help := range counterHelp {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		s.registry.MustRegister(c)
		s.counters[name] = c
	}

	gaugeHelp := map[string]string{
		domain.GaugeKeysCount:                  "Number of validator pubkeys currently watched",
		domain.MetricSlashedExternalValidators: "Total exited-slashed validators on chain",
	}
	for name, help := range gaugeHelp {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		s.registry.MustRegister(g)
		s.gauges[name] = g
	}

	return s
}

var _ ports.MetricsSink = (*PrometheusSink)(nil)

func (s *PrometheusSink) IncrementCounter(name string) {
	if c, ok := s.counters[name]; ok {
		c.Inc()
		return
	}
	logger.Debug("Unknown counter %q", name)
}

func (s *PrometheusSink) SetGauge(name string, value float64) {
	if g, ok := s.gauges[name]; ok {
		g.Set(value)
		return
	}
	logger.Debug("Unknown gauge %q", name)
}

// Serve exposes /metrics until ctx is cancelled.
func (s *PrometheusSink) Serve(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server stopped: %v", err)
	}
}
