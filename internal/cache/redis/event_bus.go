package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/outcomelab/mutuel/internal/domain"
)

const (
	// EventsChannel is the Pub/Sub channel carrying every settlement event
	// for live consumers (the WebSocket hub and any connected indexer).
	EventsChannel = "ch:settlement"

	// eventsStream is the Redis stream giving indexers durable, ordered
	// replay of the same events.
	eventsStream = "stream:settlement"

	// defaultStreamMaxLen bounds the stream via XADD MAXLEN ~.
	defaultStreamMaxLen int64 = 10000
)

// marketChannel returns the per-market Pub/Sub channel name.
func marketChannel(marketID uint64) string {
	return fmt.Sprintf("ch:market:%d", marketID)
}

// EventBus implements domain.EventSink on Redis: each committed settlement
// event is published to the firehose channel, to the per-market channel, and
// appended to a capped stream for durable consumption.
type EventBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying(), maxLen: defaultStreamMaxLen}
}

// NewEventBusWithMaxLen creates an EventBus with a custom stream cap.
func NewEventBusWithMaxLen(c *Client, maxLen int64) *EventBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &EventBus{rdb: c.Underlying(), maxLen: maxLen}
}

// Emit implements domain.EventSink.
func (b *EventBus) Emit(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	if err := b.rdb.Publish(ctx, EventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", EventsChannel, err)
	}
	if err := b.rdb.Publish(ctx, marketChannel(evt.MarketID), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish market channel: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: eventsStream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    string(evt.Type),
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", eventsStream, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription on the firehose channel and
// returns a read-only channel of raw event payloads. The subscription closes
// with the context, and the returned channel is closed at that point too.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := b.rdb.Subscribe(ctx, EventsChannel)

	// Receive the confirmation so a broken connection surfaces here rather
	// than as a silent dead channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", EventsChannel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.EventSink = (*EventBus)(nil)
