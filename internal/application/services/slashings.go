package services

import (
	"context"
	"fmt"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// SlashingMonitor detects validators newly entering exited-slashed status.
// The slashed set is re-fetched wholesale on each check and diffed against
// the previously observed one; only watched validators trigger alerts.
type SlashingMonitor struct {
	Provider ports.SlashingProvider
	Alerts   ports.AlertSink
	Metrics  ports.MetricsSink
	History  ports.HistoryStore
}

// Check fetches the current exited-slashed set and alerts on watched indices
// absent from prevSeen. It returns the full current set, which replaces
// prevSeen once the tick completes: retaining unwatched indices too means a
// validator leaving and re-entering the watched set never re-alerts.
func (m *SlashingMonitor) Check(
	ctx context.Context,
	epoch domain.Epoch,
	watchedIndices map[domain.ValidatorIndex]string,
	prevSeen domain.IndexSet,
) (domain.IndexSet, error) {
	slashed, err := m.Provider.GetExitedSlashedIndices(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching exited-slashed validators: %w", err)
	}

	watchedSlashed := make(domain.IndexSet)
	externalCount := 0
	for idx := range slashed {
		if _, ok := watchedIndices[idx]; ok {
			watchedSlashed.Add(idx)
		} else {
			externalCount++
		}
	}

	newSlashed := make(domain.IndexSet)
	for idx := range watchedSlashed {
		if !prevSeen.Has(idx) {
			newSlashed.Add(idx)
		}
	}

	for _, idx := range newSlashed.Sorted() {
		m.Metrics.IncrementCounter(domain.MetricSlashedWatchedValidators)
		if err := m.Alerts.EmitAlert(domain.SeverityCritical,
			fmt.Sprintf("🚨 Our validator %d (%s) has been slashed and exited", idx, shortKey(watchedIndices[idx]))); err != nil {
			logger.Warn("Alert sink failed: %v", err)
		}
		if m.History != nil {
			if err := m.History.RecordSlashing(ctx, idx, epoch, true); err != nil {
				logger.Warn("Failed to persist slashing for validator %d: %v", idx, err)
			}
		}
	}

	// Slashings outside the watched set are situational awareness only.
	m.Metrics.SetGauge(domain.MetricSlashedExternalValidators, float64(len(slashed)))
	if externalCount > 0 {
		logger.Info("%d exited-slashed validators on chain are outside the watched set", externalCount)
	}

	return slashed, nil
}
