package ports

import (
	"context"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
)

// TickSource produces the ordered stream of slot ticks driving the watcher.
// Both the wall-clock slot clock and the SSE block-event adapter implement
// it; the monitors are agnostic to which one supplies ticks. The returned
// channel is closed when ctx is cancelled or the source fails permanently.
type TickSource interface {
	Ticks(ctx context.Context) (<-chan domain.Tick, error)
}
