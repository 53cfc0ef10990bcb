package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// BlockProposalMonitor converts a newly observed slot into one outcome per
// slot since the last processed one: every skipped slot in between is a
// missed proposal, the observed slot itself is checked against the chain.
type BlockProposalMonitor struct {
	Duties  *DutyReconciler
	Blocks  ports.BlockPresenceProvider
	Alerts  ports.AlertSink
	Metrics ports.MetricsSink
	History ports.HistoryStore
}

// CheckSlots processes every slot in (prev, current]. A nil prev means this
// is the first observed slot: nothing before it is assumed missed. Transient
// upstream failures abort the whole call so the caller can retry the tick
// with the same prev.
func (m *BlockProposalMonitor) CheckSlots(ctx context.Context, prev *domain.Slot, current domain.Slot, watched domain.WatchedSet) error {
	start := current
	if prev != nil {
		start = *prev + 1
	}

	for slot := start; slot <= current; slot++ {
		outcome := domain.SlotOutcome{Slot: slot, Missed: true}
		if slot == current {
			hasBlock, err := m.Blocks.HasBlockAtSlot(ctx, slot)
			if err != nil {
				return fmt.Errorf("checking block presence at slot %d: %w", slot, err)
			}
			outcome.Missed = !hasBlock
		}

		// Epoch is recomputed per slot so catch-up ranges spanning an
		// epoch boundary resolve against the right duty table.
		duty, err := m.Duties.ProposerFor(ctx, slot)
		if err != nil {
			if errors.Is(err, domain.ErrDutyNotFound) {
				logger.Error("No proposer duty for slot %d, reporting slot as unresolved: %v", slot, err)
				m.emit(domain.SeverityWarning, fmt.Sprintf("⚠️ slot %d has no assigned proposer in epoch %d duty table, outcome unresolved", slot, slot.Epoch()))
				continue
			}
			return err
		}

		m.report(outcome, duty, watched)

		if m.History != nil {
			if err := m.History.RecordSlotOutcome(ctx, outcome, duty.ValidatorIndex, watched.Contains(duty.Pubkey)); err != nil {
				logger.Warn("Failed to persist outcome for slot %d: %v", slot, err)
			}
		}
	}
	return nil
}

// report prints the per-slot line and bumps the missed-proposal counter when
// one of our validators missed.
func (m *BlockProposalMonitor) report(outcome domain.SlotOutcome, duty domain.ProposerDuty, watched domain.WatchedSet) {
	isOurs := watched.Contains(duty.Pubkey)

	positiveEmoji, negativeEmoji := "✅", "💩"
	if isOurs {
		positiveEmoji, negativeEmoji = "✨", "❌"
	}

	emoji, verb := positiveEmoji, "proposed"
	severity := domain.SeverityInfo
	if outcome.Missed {
		emoji, verb = negativeEmoji, "missed  "
		severity = domain.SeverityWarning
		if isOurs {
			severity = domain.SeverityCritical
		}
	}

	owner := "    "
	if isOurs {
		owner = "Our "
	}

	birthday := ""
	if outcome.Slot.StartsEpoch() {
		birthday = " - 🎂"
	}

	shortPubkey := duty.Pubkey
	if len(shortPubkey) > 10 {
		shortPubkey = shortPubkey[:10]
	}

	m.emit(severity, fmt.Sprintf("%s %svalidator %s %s block at epoch %d - slot %d %s - 🔑 %d keys watched%s",
		emoji, owner, shortPubkey, verb, outcome.Slot.Epoch(), outcome.Slot, emoji, len(watched), birthday))

	if isOurs && outcome.Missed {
		m.Metrics.IncrementCounter(domain.MetricMissedBlockProposals)
	}
}

func (m *BlockProposalMonitor) emit(severity domain.Severity, message string) {
	if err := m.Alerts.EmitAlert(severity, message); err != nil {
		logger.Warn("Alert sink failed: %v", err)
	}
}
