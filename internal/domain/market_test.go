package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "yes", OutcomeYes.String())
	assert.Equal(t, "no", OutcomeNo.String())

	got, ok := ParseOutcome("yes")
	assert.True(t, ok)
	assert.Equal(t, OutcomeYes, got)

	got, ok = ParseOutcome("no")
	assert.True(t, ok)
	assert.Equal(t, OutcomeNo, got)

	for _, s := range []string{"", "YES", "maybe", "true"} {
		_, ok := ParseOutcome(s)
		assert.False(t, ok, "input %q", s)
	}
}

func TestMarketExpired(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := Market{ExpiresAt: at.Unix()}

	assert.False(t, m.Expired(at.Add(-time.Second)))
	// The window closes at the boundary itself.
	assert.True(t, m.Expired(at))
	assert.True(t, m.Expired(at.Add(time.Second)))
}

func TestMarketPool(t *testing.T) {
	m := Market{YesPool: 80, NoPool: 70}
	assert.Equal(t, uint64(80), m.Pool(OutcomeYes))
	assert.Equal(t, uint64(70), m.Pool(OutcomeNo))
}

func TestPositionTokens(t *testing.T) {
	p := Position{YesTokens: 30}
	assert.Equal(t, uint64(30), p.Tokens(OutcomeYes))
	assert.Zero(t, p.Tokens(OutcomeNo))
	assert.False(t, p.Empty())

	// Claimed positions keep the invested history but no stake.
	claimed := Position{TotalInvested: 30}
	assert.False(t, claimed.Empty())
	assert.Zero(t, claimed.Tokens(OutcomeYes))

	assert.True(t, Position{}.Empty())
}
