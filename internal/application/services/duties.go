package services

import (
	"context"
	"fmt"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// DutyReconciler fetches and caches one proposer duty table per epoch. The
// upstream duty list carries no ordering guarantee, so the table is indexed
// by slot number at fetch time and treated as immutable afterwards.
type DutyReconciler struct {
	Provider ports.DutyProvider

	tables map[domain.Epoch]domain.ProposerDutyTable
}

func NewDutyReconciler(provider ports.DutyProvider) *DutyReconciler {
	return &DutyReconciler{
		Provider: provider,
		tables:   make(map[domain.Epoch]domain.ProposerDutyTable),
	}
}

// DutiesFor returns the duty table for the epoch, fetching it on first
// reference. A fetch failure surfaces as domain.ErrUpstreamUnavailable and
// leaves the cache untouched, so the caller retries the whole tick.
func (r *DutyReconciler) DutiesFor(ctx context.Context, epoch domain.Epoch) (domain.ProposerDutyTable, error) {
	if table, ok := r.tables[epoch]; ok {
		return table, nil
	}

	table, err := r.Provider.GetProposerDuties(ctx, epoch)
	if err != nil {
		return nil, fmt.Errorf("fetching proposer duties for epoch %d: %w", epoch, err)
	}
	if len(table) < domain.SlotsPerEpoch {
		logger.Warn("Proposer duty table for epoch %d covers %d of %d slots", epoch, len(table), domain.SlotsPerEpoch)
	}

	r.tables[epoch] = table
	return table, nil
}

// ProposerFor resolves the assigned proposer of a slot. A missing entry in a
// fetched table is a data-integrity fault, reported as domain.ErrDutyNotFound.
func (r *DutyReconciler) ProposerFor(ctx context.Context, slot domain.Slot) (domain.ProposerDuty, error) {
	table, err := r.DutiesFor(ctx, slot.Epoch())
	if err != nil {
		return domain.ProposerDuty{}, err
	}

	duty, ok := table[slot]
	if !ok {
		return domain.ProposerDuty{}, fmt.Errorf("slot %d in epoch %d: %w", slot, slot.Epoch(), domain.ErrDutyNotFound)
	}
	return duty, nil
}

// Retire drops cached tables for epochs whose slots have all been processed.
func (r *DutyReconciler) Retire(lastProcessed domain.Slot) {
	for epoch := range r.tables {
		if epoch.LastSlot() <= lastProcessed {
			delete(r.tables, epoch)
		}
	}
}
