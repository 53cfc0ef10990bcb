package domain

import "errors"

// ErrUpstreamUnavailable marks a transient failure of an external data
// source. The whole tick is abandoned and retried later with the same state.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrDutyNotFound marks a hole in a fetched proposer duty table. A correctly
// populated table covers all 32 slots of its epoch, so this is a data
// integrity fault: the affected slot is reported as unresolved and skipped.
var ErrDutyNotFound = errors.New("proposer duty not found")
