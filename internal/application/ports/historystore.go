package ports

import (
	"context"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// HistoryStore persists duty outcomes for later inspection. It is write-only
// from the watcher's point of view: reconciliation state is never read back
// from storage.
type HistoryStore interface {
	// RecordSlotOutcome inserts or updates the outcome of one slot.
	RecordSlotOutcome(ctx context.Context, outcome domain.SlotOutcome, proposer domain.ValidatorIndex, watched bool) error

	// RecordAttestationMiss inserts or updates a per-epoch attestation miss.
	RecordAttestationMiss(ctx context.Context, index domain.ValidatorIndex, epoch domain.Epoch, escalated bool) error

	// RecordSlashing inserts a newly observed slashing.
	RecordSlashing(ctx context.Context, index domain.ValidatorIndex, epoch domain.Epoch, watched bool) error
}
