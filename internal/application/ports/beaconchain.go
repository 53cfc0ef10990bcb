package ports

import (
	"context"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// DutyProvider returns the proposer assignment for every slot of an epoch.
// The returned table must cover all 32 slots; failures are reported as
// domain.ErrUpstreamUnavailable.
type DutyProvider interface {
	GetProposerDuties(ctx context.Context, epoch domain.Epoch) (domain.ProposerDutyTable, error)
}

// BlockPresenceProvider answers whether a canonical block exists at a slot.
type BlockPresenceProvider interface {
	HasBlockAtSlot(ctx context.Context, slot domain.Slot) (bool, error)
}

// ValidatorResolver maps watched pubkeys to their active validator indices.
type ValidatorResolver interface {
	GetValidatorIndicesByPubkeys(ctx context.Context, pubkeys []string) (map[domain.ValidatorIndex]string, error)
}

// AttestationEvaluator returns, among the given indices, those that did not
// attest optimally in the given epoch. The determination itself (inclusion,
// vote correctness) is entirely the evaluator's; the monitors treat the
// returned set as ground truth.
type AttestationEvaluator interface {
	GetAttestationFailures(ctx context.Context, epoch domain.Epoch, indices []domain.ValidatorIndex) (domain.IndexSet, error)
}

// SlashingProvider returns the full current set of exited-slashed validator
// indices. The set is re-fetched wholesale on each call, never maintained
// incrementally.
type SlashingProvider interface {
	GetExitedSlashedIndices(ctx context.Context) (domain.IndexSet, error)
}
