package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

func newProposalMonitor(duties *fakeDutyProvider, blocks *fakeBlocks) (*BlockProposalMonitor, *recordingSink, *fakeMetrics) {
	sink := &recordingSink{}
	metrics := newFakeMetrics()
	monitor := &BlockProposalMonitor{
		Duties:  NewDutyReconciler(duties),
		Blocks:  blocks,
		Alerts:  sink,
		Metrics: metrics,
	}
	return monitor, sink, metrics
}

func TestFirstTickEvaluatesOnlyObservedSlot(t *testing.T) {
	// Genesis scenario: first observed slot is 63 (epoch 1), no previous
	// slot known. Only slot 63 itself must be evaluated.
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		1: fullDutyTable(1, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{63: true}}
	monitor, sink, metrics := newProposalMonitor(duties, blocks)

	err := monitor.CheckSlots(context.Background(), nil, 63, domain.NewWatchedSet(nil))
	require.NoError(t, err)

	require.Equal(t, []domain.Slot{63}, blocks.queried)
	require.Len(t, sink.alerts, 1)
	require.Contains(t, sink.alerts[0].message, "slot 63")
	require.Contains(t, sink.alerts[0].message, "proposed")
	require.Zero(t, metrics.counters[domain.MetricMissedBlockProposals])
}

func TestGapProducesOneOutcomePerSkippedSlot(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		0: fullDutyTable(0, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{9: true}}
	monitor, sink, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(5)
	err := monitor.CheckSlots(context.Background(), &prev, 9, domain.NewWatchedSet(nil))
	require.NoError(t, err)

	// Slots 6, 7, 8 missed; slot 9 proposed. Exactly one line each.
	require.Len(t, sink.alerts, 4)
	for i, slot := range []string{"slot 6", "slot 7", "slot 8"} {
		require.Contains(t, sink.alerts[i].message, slot)
		require.Contains(t, sink.alerts[i].message, "missed")
	}
	require.Contains(t, sink.alerts[3].message, "slot 9")
	require.Contains(t, sink.alerts[3].message, "proposed")

	// Block presence is only queried for the observed slot; skipped slots
	// are missed by definition.
	require.Equal(t, []domain.Slot{9}, blocks.queried)
}

func TestWatchedMissIncrementsCounterAndEscalatesSeverity(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		0: fullDutyTable(0, func(s domain.Slot) domain.ValidatorIndex { return 7 }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{}} // no block at 4
	monitor, sink, metrics := newProposalMonitor(duties, blocks)

	watched := domain.NewWatchedSet([]string{pubkeyFor(7)})
	prev := domain.Slot(3)
	err := monitor.CheckSlots(context.Background(), &prev, 4, watched)
	require.NoError(t, err)

	require.Equal(t, 1, metrics.counters[domain.MetricMissedBlockProposals])
	critical := sink.bySeverity(domain.SeverityCritical)
	require.Len(t, critical, 1)
	require.Contains(t, critical[0], "Our ")
}

func TestUnwatchedMissDoesNotIncrementCounter(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		0: fullDutyTable(0, func(s domain.Slot) domain.ValidatorIndex { return 7 }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{}}
	monitor, sink, metrics := newProposalMonitor(duties, blocks)

	prev := domain.Slot(3)
	err := monitor.CheckSlots(context.Background(), &prev, 4, domain.NewWatchedSet([]string{pubkeyFor(999)}))
	require.NoError(t, err)

	require.Zero(t, metrics.counters[domain.MetricMissedBlockProposals])
	require.Empty(t, sink.bySeverity(domain.SeverityCritical))
	require.Len(t, sink.bySeverity(domain.SeverityWarning), 1)
}

func TestCatchUpAcrossEpochBoundaryFetchesBothDutyTables(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		1: fullDutyTable(1, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
		2: fullDutyTable(2, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{66: true}}
	monitor, sink, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(62)
	err := monitor.CheckSlots(context.Background(), &prev, 66, domain.NewWatchedSet(nil))
	require.NoError(t, err)

	// Slots 63 (epoch 1) and 64, 65, 66 (epoch 2): the epoch is recomputed
	// per slot and both tables are consulted, one fetch each.
	require.Equal(t, 2, duties.calls)
	require.Len(t, sink.alerts, 4)
	require.Contains(t, sink.alerts[0].message, "epoch 1")
	require.Contains(t, sink.alerts[1].message, "epoch 2")
}

func TestEpochStartSlotCarriesBoundaryTag(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		1: fullDutyTable(1, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
		2: fullDutyTable(2, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
	}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{64: true}}
	monitor, sink, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(62)
	err := monitor.CheckSlots(context.Background(), &prev, 64, domain.NewWatchedSet(nil))
	require.NoError(t, err)

	require.Len(t, sink.alerts, 2)
	require.False(t, strings.Contains(sink.alerts[0].message, "🎂"), "slot 63 is not an epoch start")
	require.Contains(t, sink.alerts[1].message, "🎂")
}

func TestDutyHoleReportsSlotUnresolved(t *testing.T) {
	table := fullDutyTable(0, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) })
	delete(table, 8)
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{0: table}}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{9: true}}
	monitor, sink, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(7)
	err := monitor.CheckSlots(context.Background(), &prev, 9, domain.NewWatchedSet(nil))
	require.NoError(t, err)

	// Slot 8 is unresolved, not silently reported as proposed; slot 9 is
	// still processed.
	warnings := sink.bySeverity(domain.SeverityWarning)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "unresolved")
	require.Contains(t, sink.alerts[len(sink.alerts)-1].message, "slot 9")
}

func TestBlockPresenceFailureAbortsTick(t *testing.T) {
	duties := &fakeDutyProvider{tables: map[domain.Epoch]domain.ProposerDutyTable{
		0: fullDutyTable(0, func(s domain.Slot) domain.ValidatorIndex { return domain.ValidatorIndex(s) }),
	}}
	blocks := &fakeBlocks{err: domain.ErrUpstreamUnavailable}
	monitor, _, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(3)
	err := monitor.CheckSlots(context.Background(), &prev, 4, domain.NewWatchedSet(nil))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestDutyFetchFailureAbortsTick(t *testing.T) {
	duties := &fakeDutyProvider{err: domain.ErrUpstreamUnavailable}
	blocks := &fakeBlocks{present: map[domain.Slot]bool{4: true}}
	monitor, _, _ := newProposalMonitor(duties, blocks)

	prev := domain.Slot(3)
	err := monitor.CheckSlots(context.Background(), &prev, 4, domain.NewWatchedSet(nil))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
