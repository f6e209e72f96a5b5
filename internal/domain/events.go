package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the settlement event variants on the wire.
type EventType string

const (
	EventMarketCreated   EventType = "market_created"
	EventTrade           EventType = "trade"
	EventMarketResolved  EventType = "market_resolved"
	EventWinningsClaimed EventType = "winnings_claimed"
)

// Event is the envelope published to the indexer/cache layer after a mutating
// operation commits.
type Event struct {
	Type      EventType       `json:"type"`
	MarketID  uint64          `json:"market_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MarketCreated is emitted once per market, on creation.
type MarketCreated struct {
	MarketID         uint64 `json:"market_id"`
	Creator          string `json:"creator"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	InitialLiquidity uint64 `json:"initial_liquidity"`
	ExpiresAt        int64  `json:"expires_at"`
	Timestamp        int64  `json:"timestamp"`
}

// Trade is emitted for every accepted bet, with the resulting pool snapshot.
type Trade struct {
	MarketID  uint64 `json:"market_id"`
	Trader    string `json:"trader"`
	Side      string `json:"side"`
	Amount    uint64 `json:"amount"`
	YesPool   uint64 `json:"resulting_yes_pool"`
	NoPool    uint64 `json:"resulting_no_pool"`
	Timestamp int64  `json:"timestamp"`
}

// MarketResolved is emitted exactly once per market, on resolution.
type MarketResolved struct {
	MarketID       uint64 `json:"market_id"`
	Resolver       string `json:"resolver"`
	WinningOutcome string `json:"winning_outcome"`
	Timestamp      int64  `json:"timestamp"`
}

// WinningsClaimed is emitted on every successful claim.
type WinningsClaimed struct {
	MarketID  uint64 `json:"market_id"`
	Claimer   string `json:"claimer"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent wraps a typed payload in an Event envelope.
func NewEvent(typ EventType, marketID uint64, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("domain: marshal %s payload: %w", typ, err)
	}
	return Event{
		Type:      typ,
		MarketID:  marketID,
		Timestamp: at,
		Payload:   raw,
	}, nil
}

// EventSink receives committed settlement events. Implementations must not
// influence the outcome of the operation that produced the event; publishing
// happens after commit and failures are logged, not propagated.
type EventSink interface {
	Emit(ctx context.Context, evt Event) error
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, evt Event) error

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, evt Event) error { return f(ctx, evt) }
