package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{ErrNotAdmin, KindAuthorization},
		{ErrMarketNotFound, KindNotFound},
		{ErrNotFound, KindNotFound},
		{ErrAlreadyInitialized, KindStateConflict},
		{ErrNotInitialized, KindStateConflict},
		{ErrMarketResolved, KindStateConflict},
		{ErrMarketNotResolved, KindStateConflict},
		{ErrPositionExists, KindStateConflict},
		{ErrInsufficientFunds, KindStateConflict},
		{ErrInvalidAmount, KindValidation},
		{ErrMarketExpired, KindTemporal},
		{ErrNoWinnings, KindEntitlement},
		{errors.New("some io failure"), KindInternal},
		{nil, KindInternal},
	}
	for _, tc := range cases {
		name := "nil"
		if tc.err != nil {
			name = tc.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("settle: place bet: %w", ErrMarketExpired)
	assert.Equal(t, KindTemporal, KindOf(wrapped))

	deep := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrNoWinnings))
	assert.Equal(t, KindEntitlement, KindOf(deep))
}
