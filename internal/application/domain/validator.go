package domain

import "slices"

// --------------------------------------------------------

// Domain types used for anything related to validators
type Epoch uint64
type Slot uint64
type ValidatorIndex uint64

// SlotsPerEpoch is the number of slots in one epoch (consensus constant).
const SlotsPerEpoch = 32

// Epoch returns the epoch the slot belongs to.
func (s Slot) Epoch() Epoch {
	return Epoch(s / SlotsPerEpoch)
}

// StartsEpoch reports whether the slot is the first slot of its epoch.
func (s Slot) StartsEpoch() bool {
	return s%SlotsPerEpoch == 0
}

// FirstSlot returns the first slot of the epoch.
func (e Epoch) FirstSlot() Slot {
	return Slot(uint64(e) * SlotsPerEpoch)
}

// LastSlot returns the last slot of the epoch.
func (e Epoch) LastSlot() Slot {
	return e.FirstSlot() + SlotsPerEpoch - 1
}

// --------------------------------------------------------

// Tick is one unit of work for the watcher: a newly observed slot.
// EpochStart is true when the slot is the first slot of a new epoch.
type Tick struct {
	Slot       Slot
	EpochStart bool
}

// SlotOutcome is the resolution of a single slot: either a block exists at
// that slot or the proposal was missed.
type SlotOutcome struct {
	Slot   Slot
	Missed bool
}

// --------------------------------------------------------

// Proposer-related types
type ProposerDuty struct {
	Slot           Slot
	ValidatorIndex ValidatorIndex
	Pubkey         string
}

// ProposerDutyTable maps every slot of one epoch to its assigned proposer.
// Built once per epoch fetch and never mutated afterwards.
type ProposerDutyTable map[Slot]ProposerDuty

// --------------------------------------------------------

// WatchedSet is the set of pubkeys considered ours. It is re-fetched on
// every tick that needs it and never cached across ticks.
type WatchedSet map[string]struct{}

func NewWatchedSet(pubkeys []string) WatchedSet {
	set := make(WatchedSet, len(pubkeys))
	for _, pk := range pubkeys {
		set[pk] = struct{}{}
	}
	return set
}

func (w WatchedSet) Contains(pubkey string) bool {
	_, ok := w[pubkey]
	return ok
}

// IndexSet is a set of validator indices.
type IndexSet map[ValidatorIndex]struct{}

func NewIndexSet(indices ...ValidatorIndex) IndexSet {
	set := make(IndexSet, len(indices))
	for _, idx := range indices {
		set[idx] = struct{}{}
	}
	return set
}

func (s IndexSet) Has(idx ValidatorIndex) bool {
	_, ok := s[idx]
	return ok
}

func (s IndexSet) Add(idx ValidatorIndex) {
	s[idx] = struct{}{}
}

// Sorted returns the indices in ascending order, for stable reporting.
func (s IndexSet) Sorted() []ValidatorIndex {
	out := make([]ValidatorIndex, 0, len(s))
	for idx := range s {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}
