package services

import (
	"context"
	"fmt"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// AttestationMonitor evaluates, once per epoch, which watched validators
// failed to attest optimally in the most recently completed epoch, and
// escalates the ones failing in two consecutive epochs.
type AttestationMonitor struct {
	Evaluator ports.AttestationEvaluator
	Alerts    ports.AlertSink
	Metrics   ports.MetricsSink
	History   ports.HistoryStore
}

// CheckEpoch is called on the first slot of epoch. It evaluates epoch-1 (the
// completed one) against the currently watched indices and diffs the failing
// set with prevFailing, the set returned by the previous invocation. The
// returned set replaces prevFailing in the watcher's state once the tick
// completes.
func (m *AttestationMonitor) CheckEpoch(
	ctx context.Context,
	epoch domain.Epoch,
	watchedIndices map[domain.ValidatorIndex]string,
	prevFailing domain.IndexSet,
) (domain.IndexSet, error) {
	if epoch == 0 {
		return domain.IndexSet{}, nil
	}
	evaluated := epoch - 1

	indices := make([]domain.ValidatorIndex, 0, len(watchedIndices))
	for idx := range watchedIndices {
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		logger.Debug("No watched validators active in epoch %d, skipping attestation check", evaluated)
		return domain.IndexSet{}, nil
	}

	failures, err := m.Evaluator.GetAttestationFailures(ctx, evaluated, indices)
	if err != nil {
		return nil, fmt.Errorf("evaluating attestations for epoch %d: %w", evaluated, err)
	}

	// Restrict to the current watched set: a validator that left the set
	// since the last epoch must not linger in the failing set, so the
	// escalation diff below is always a subset of today's watched failures.
	missedNow := make(domain.IndexSet, len(failures))
	for idx := range failures {
		if _, ok := watchedIndices[idx]; ok {
			missedNow.Add(idx)
		}
	}

	escalated := make(domain.IndexSet)
	for idx := range missedNow {
		if prevFailing.Has(idx) {
			escalated.Add(idx)
		}
	}

	for _, idx := range missedNow.Sorted() {
		logger.Warn("❌ Validator %d (%s) did not attest optimally in epoch %d", idx, shortKey(watchedIndices[idx]), evaluated)
		m.Metrics.IncrementCounter(domain.MetricMissedAttestations)
		if m.History != nil {
			if err := m.History.RecordAttestationMiss(ctx, idx, evaluated, escalated.Has(idx)); err != nil {
				logger.Warn("Failed to persist attestation miss for validator %d: %v", idx, err)
			}
		}
	}

	for _, idx := range escalated.Sorted() {
		m.Metrics.IncrementCounter(domain.MetricDoubleMissedAttestations)
		if err := m.Alerts.EmitAlert(domain.SeverityCritical,
			fmt.Sprintf("🚨 Validator %d (%s) missed attestations in two consecutive epochs (%d and %d)",
				idx, shortKey(watchedIndices[idx]), evaluated-1, evaluated)); err != nil {
			logger.Warn("Alert sink failed: %v", err)
		}
	}

	if len(missedNow) == 0 {
		logger.Info("✅ All %d watched validators attested optimally in epoch %d", len(indices), evaluated)
	}

	return missedNow, nil
}

func shortKey(pubkey string) string {
	if len(pubkey) > 10 {
		return pubkey[:10]
	}
	return pubkey
}
