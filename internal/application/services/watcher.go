package services

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// sustainedFailureThreshold is the number of consecutive failed ticks after
// which the watcher starts flagging the condition at error level.
const sustainedFailureThreshold = 10

// StateStore is the only memory the watcher carries across ticks. It is
// owned exclusively by the watcher and updated at the end of a successfully
// completed tick, never speculatively.
type StateStore struct {
	// LastProcessedSlot is nil until the first tick completes.
	LastProcessedSlot *domain.Slot
	// PrevFailing is the watched failing set of the last evaluated epoch.
	PrevFailing domain.IndexSet
	// SeenSlashed is the full exited-slashed set at the last evaluation.
	SeenSlashed domain.IndexSet
}

func NewStateStore() *StateStore {
	return &StateStore{
		PrevFailing: domain.IndexSet{},
		SeenSlashed: domain.IndexSet{},
	}
}

// Watcher drives the three monitors against one ordered stream of slot
// ticks. A tick is processed to completion, alerts included, before the next
// one starts; a tick that fails on a transient upstream error leaves the
// state untouched so the next tick retries the same range.
type Watcher struct {
	Duties    *DutyReconciler
	Proposals *BlockProposalMonitor
	Attests   *AttestationMonitor
	Slashings *SlashingMonitor

	PubkeySources []ports.PubkeySource
	Resolver      ports.ValidatorResolver
	Metrics       ports.MetricsSink
	Liveness      ports.LivenessWriter

	State *StateStore

	consecutiveFailures int
}

// Run consumes ticks until the channel closes or ctx is cancelled. The
// in-flight tick always finishes (including alert emission) before Run
// returns.
func (w *Watcher) Run(ctx context.Context, ticks <-chan domain.Tick) {
	for {
		select {
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			if err := w.processTick(ctx, tick); err != nil {
				w.consecutiveFailures++
				if w.consecutiveFailures >= sustainedFailureThreshold {
					logger.Error("Tick for slot %d failed (%d consecutive failures): %v", tick.Slot, w.consecutiveFailures, err)
				} else {
					logger.Warn("Tick for slot %d failed, will retry from the same state: %v", tick.Slot, err)
				}
				continue
			}
			w.consecutiveFailures = 0
		case <-ctx.Done():
			return
		}
	}
}

// processTick runs one full reconciliation pass for a newly observed slot.
// State advances only after every monitor has completed.
func (w *Watcher) processTick(ctx context.Context, tick domain.Tick) error {
	if w.State.LastProcessedSlot != nil && tick.Slot <= *w.State.LastProcessedSlot {
		logger.Debug("Slot %d already processed, skipping tick", tick.Slot)
		return nil
	}

	// Watched pubkeys are reloaded on every tick; the set may change
	// between ticks and is never cached beyond one use.
	pubkeys, err := w.loadWatchedPubkeys()
	if err != nil {
		return err
	}
	watched := domain.NewWatchedSet(pubkeys)
	w.Metrics.SetGauge(domain.GaugeKeysCount, float64(len(watched)))

	if err := w.Proposals.CheckSlots(ctx, w.State.LastProcessedSlot, tick.Slot, watched); err != nil {
		return err
	}

	newFailing := w.State.PrevFailing
	newSeenSlashed := w.State.SeenSlashed

	// Per-epoch evaluations run on epoch boundaries: attestation data for
	// an epoch is only fully observable once the next epoch has begun. The
	// boundary is also derived from state so that an epoch-start tick that
	// failed and is retried on a later slot still runs the evaluation.
	epochCheckDue := tick.EpochStart
	if w.State.LastProcessedSlot != nil && (*w.State.LastProcessedSlot).Epoch() < tick.Slot.Epoch() {
		epochCheckDue = true
	}
	if epochCheckDue {
		watchedIndices, err := w.Resolver.GetValidatorIndicesByPubkeys(ctx, pubkeys)
		if err != nil {
			return err
		}

		epoch := tick.Slot.Epoch()
		newFailing, err = w.Attests.CheckEpoch(ctx, epoch, watchedIndices, w.State.PrevFailing)
		if err != nil {
			return err
		}
		newSeenSlashed, err = w.Slashings.Check(ctx, epoch, watchedIndices, w.State.SeenSlashed)
		if err != nil {
			return err
		}
	}

	// Tick fully completed: advance state, drop duty tables for finished
	// epochs, signal liveness.
	slot := tick.Slot
	w.State.LastProcessedSlot = &slot
	w.State.PrevFailing = newFailing
	w.State.SeenSlashed = newSeenSlashed
	w.Duties.Retire(slot)

	if w.Liveness != nil {
		if err := w.Liveness.WriteLivenessMarker(); err != nil {
			logger.Warn("Failed to write liveness marker: %v", err)
		}
	}
	return nil
}

// loadWatchedPubkeys queries every configured source concurrently and
// returns the union. Sources are independent reads with no ordering
// requirement among themselves.
func (w *Watcher) loadWatchedPubkeys() ([]string, error) {
	var (
		mu    sync.Mutex
		union = make(map[string]struct{})
	)

	var g errgroup.Group
	for _, source := range w.PubkeySources {
		source := source
		g.Go(func() error {
			pubkeys, err := source.GetValidatorPubkeys()
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, pk := range pubkeys {
				union[pk] = struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(union))
	for pk := range union {
		out = append(out, pk)
	}
	return out, nil
}

// MultiSink fans one alert out to several sinks. Individual sink failures
// are logged and swallowed so a broken sink never aborts tick processing.
type MultiSink struct {
	Sinks []ports.AlertSink
}

func (m *MultiSink) EmitAlert(severity domain.Severity, message string) error {
	for _, sink := range m.Sinks {
		if err := sink.EmitAlert(severity, message); err != nil {
			logger.Warn("Alert sink failed: %v", err)
		}
	}
	return nil
}
