package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/r3labs/sse/v2"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/logger"
)

// EventSource implements ports.TickSource from the beacon node's server-sent
// block event stream. One event arrives per canonical block; skipped slots
// produce no event and surface as gaps the proposal monitor catches up over.
type EventSource struct {
	client *sse.Client
}

// blockEvent is the payload of a "block" topic event. Numeric fields are
// string-encoded per the beacon API.
type blockEvent struct {
	Slot  string `json:"slot"`
	Block string `json:"block"`
}

func NewEventSource(beaconEndpoint string) *EventSource {
	return &EventSource{
		client: sse.NewClient(fmt.Sprintf("%s/eth/v1/events?topics=block", beaconEndpoint)),
	}
}

func parseBlockEvent(data []byte) (domain.Slot, error) {
	var event blockEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return 0, err
	}
	slot, err := strconv.ParseUint(event.Slot, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad slot %q: %w", event.Slot, err)
	}
	return domain.Slot(slot), nil
}

func (s *EventSource) Ticks(ctx context.Context) (<-chan domain.Tick, error) {
	out := make(chan domain.Tick, 1)

	go func() {
		defer close(out)
		err := s.client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if len(msg.Data) == 0 {
				return
			}

			slot, err := parseBlockEvent(msg.Data)
			if err != nil {
				logger.Warn("Discarding malformed block event: %v", err)
				return
			}
			select {
			case out <- domain.Tick{Slot: slot, EpochStart: slot.StartsEpoch()}:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Block event subscription ended: %v", err)
		}
	}()

	return out, nil
}
