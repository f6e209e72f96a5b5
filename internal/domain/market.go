// Package domain defines the core types, store interfaces, events, and
// sentinel errors of the parimutuel settlement engine. It has no dependencies
// on any concrete storage or transport implementation.
package domain

import "time"

// Outcome is one of the two sides of a binary market.
type Outcome bool

const (
	OutcomeYes Outcome = true
	OutcomeNo  Outcome = false
)

// String returns "yes" or "no".
func (o Outcome) String() string {
	if o == OutcomeYes {
		return "yes"
	}
	return "no"
}

// ParseOutcome converts the wire representation ("yes"/"no") back to an
// Outcome.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "yes":
		return OutcomeYes, true
	case "no":
		return OutcomeNo, true
	}
	return OutcomeNo, false
}

// Market is a single binary prediction event and its two stake pools.
//
// TotalLiquidity equals YesPool + NoPool after every mutation, except for the
// one unit an odd seed drops at creation (the unit stays custodied in the
// vault but sits on neither side). Once Resolved is set the pools are frozen
// and WinningOutcome is write-once.
type Market struct {
	ID             uint64
	Name           string
	Description    string
	YesPool        uint64
	NoPool         uint64
	TotalLiquidity uint64
	ExpiresAt      int64 // unix seconds
	Resolved       bool
	WinningOutcome Outcome
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}

// Expired reports whether the market's betting window has closed at the given
// instant. Resolution is independent of expiry: an admin may resolve before
// or after this point.
func (m Market) Expired(now time.Time) bool {
	return now.Unix() >= m.ExpiresAt
}

// Pool returns the stake pool backing the given side.
func (m Market) Pool(side Outcome) uint64 {
	if side == OutcomeYes {
		return m.YesPool
	}
	return m.NoPool
}

// MarketStatus is the compact lifecycle tuple served by the view layer.
type MarketStatus struct {
	Resolved       bool
	WinningOutcome Outcome
	Expired        bool
}
