package domain

import "time"

// Position is a trader's stake record for one market. At most one of
// YesTokens / NoTokens is nonzero: a trader backs exactly one side, exactly
// once, per market. A successful claim zeroes both token counters but keeps
// TotalInvested as history, so "never bet", "won and claimed", and "lost"
// are indistinguishable from the token fields alone; consumers disambiguate
// with the market's Resolved + WinningOutcome.
type Position struct {
	Trader        string
	MarketID      uint64
	YesTokens     uint64
	NoTokens      uint64
	TotalInvested uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Tokens returns the trader's stake on the given side.
func (p Position) Tokens(side Outcome) uint64 {
	if side == OutcomeYes {
		return p.YesTokens
	}
	return p.NoTokens
}

// Empty reports whether the position record carries no stake at all; a zero
// Position is the view-layer default for traders who never bet.
func (p Position) Empty() bool {
	return p.YesTokens == 0 && p.NoTokens == 0 && p.TotalInvested == 0
}

// PositionKey identifies a position record.
type PositionKey struct {
	Trader   string
	MarketID uint64
}
