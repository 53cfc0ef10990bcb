package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// Hand-rolled fakes for the collaborator ports. Each records enough of what
// it saw for the tests to assert on.

type fakeDutyProvider struct {
	tables map[domain.Epoch]domain.ProposerDutyTable
	err    error
	calls  int
}

func (f *fakeDutyProvider) GetProposerDuties(_ context.Context, epoch domain.Epoch) (domain.ProposerDutyTable, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[epoch]
	if !ok {
		return domain.ProposerDutyTable{}, nil
	}
	return table, nil
}

// fullDutyTable assigns proposerOf(slot) to every slot of the epoch.
func fullDutyTable(epoch domain.Epoch, proposerOf func(domain.Slot) domain.ValidatorIndex) domain.ProposerDutyTable {
	table := make(domain.ProposerDutyTable, domain.SlotsPerEpoch)
	for slot := epoch.FirstSlot(); slot <= epoch.LastSlot(); slot++ {
		idx := proposerOf(slot)
		table[slot] = domain.ProposerDuty{
			Slot:           slot,
			ValidatorIndex: idx,
			Pubkey:         pubkeyFor(idx),
		}
	}
	return table
}

func pubkeyFor(idx domain.ValidatorIndex) string {
	return fmt.Sprintf("0xkey%04d", idx)
}

type fakeBlocks struct {
	present map[domain.Slot]bool
	err     error
	queried []domain.Slot
}

func (f *fakeBlocks) HasBlockAtSlot(_ context.Context, slot domain.Slot) (bool, error) {
	f.queried = append(f.queried, slot)
	if f.err != nil {
		return false, f.err
	}
	return f.present[slot], nil
}

type fakeEvaluator struct {
	failures map[domain.Epoch]domain.IndexSet
	err      error
	calls    []domain.Epoch
}

func (f *fakeEvaluator) GetAttestationFailures(_ context.Context, epoch domain.Epoch, indices []domain.ValidatorIndex) (domain.IndexSet, error) {
	f.calls = append(f.calls, epoch)
	if f.err != nil {
		return nil, f.err
	}
	asked := domain.NewIndexSet(indices...)
	out := make(domain.IndexSet)
	for idx := range f.failures[epoch] {
		if asked.Has(idx) {
			out.Add(idx)
		}
	}
	return out, nil
}

type fakeSlashing struct {
	slashed domain.IndexSet
	err     error
}

func (f *fakeSlashing) GetExitedSlashedIndices(_ context.Context) (domain.IndexSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(domain.IndexSet, len(f.slashed))
	for idx := range f.slashed {
		out.Add(idx)
	}
	return out, nil
}

type fakeResolver struct {
	indices map[domain.ValidatorIndex]string
	err     error
}

func (f *fakeResolver) GetValidatorIndicesByPubkeys(_ context.Context, _ []string) (map[domain.ValidatorIndex]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.indices, nil
}

type fakePubkeySource struct {
	pubkeys []string
	err     error
	calls   int
}

func (f *fakePubkeySource) GetValidatorPubkeys() ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pubkeys, nil
}

type recordedAlert struct {
	severity domain.Severity
	message  string
}

type recordingSink struct {
	mu     sync.Mutex
	alerts []recordedAlert
	err    error
}

func (r *recordingSink) EmitAlert(severity domain.Severity, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, recordedAlert{severity, message})
	return r.err
}

func (r *recordingSink) bySeverity(severity domain.Severity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.alerts {
		if a.severity == severity {
			out = append(out, a.message)
		}
	}
	return out
}

type fakeMetrics struct {
	counters map[string]int
	gauges   map[string]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		counters: make(map[string]int),
		gauges:   make(map[string]float64),
	}
}

func (f *fakeMetrics) IncrementCounter(name string) {
	f.counters[name]++
}

func (f *fakeMetrics) SetGauge(name string, value float64) {
	f.gauges[name] = value
}

type countingLiveness struct {
	writes int
	err    error
}

func (c *countingLiveness) WriteLivenessMarker() error {
	c.writes++
	return c.err
}
