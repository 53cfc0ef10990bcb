package services

import (
	"context"
	"time"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// SlotClock derives slot ticks from wall-clock time and the chain's genesis
// timestamp. It is the fallback tick driver when the beacon node's event
// stream is not used.
type SlotClock struct {
	Genesis      time.Time
	SlotDuration time.Duration

	// now is replaceable for tests; defaults to time.Now.
	now func() time.Time
}

func NewSlotClock(genesisUnix int64, slotDuration time.Duration) *SlotClock {
	return &SlotClock{
		Genesis:      time.Unix(genesisUnix, 0),
		SlotDuration: slotDuration,
		now:          time.Now,
	}
}

// CurrentSlot returns max(0, floor((now - genesis) / slotDuration)).
func (c *SlotClock) CurrentSlot() domain.Slot {
	elapsed := c.now().Sub(c.Genesis)
	if elapsed < 0 {
		return 0
	}
	return domain.Slot(elapsed / c.SlotDuration)
}

// startOf returns the wall-clock time at which the given slot begins.
func (c *SlotClock) startOf(slot domain.Slot) time.Time {
	return c.Genesis.Add(time.Duration(slot) * c.SlotDuration)
}

// Ticks emits the current slot immediately, then one tick per slot boundary
// until ctx is cancelled.
func (c *SlotClock) Ticks(ctx context.Context) (<-chan domain.Tick, error) {
	out := make(chan domain.Tick)

	go func() {
		defer close(out)

		slot := c.CurrentSlot()
		for {
			select {
			case out <- domain.Tick{Slot: slot, EpochStart: slot.StartsEpoch()}:
			case <-ctx.Done():
				return
			}

			slot++
			wait := c.startOf(slot).Sub(c.now())
			if wait < 0 {
				// Fell behind (slow consumer); resynchronize to the
				// wall clock instead of bursting stale ticks.
				slot = c.CurrentSlot() + 1
				wait = c.startOf(slot).Sub(c.now())
				logger.Debug("Slot clock fell behind, resyncing to slot %d", slot)
			}

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return out, nil
}
