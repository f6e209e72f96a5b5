package handler

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomelab/mutuel/internal/domain"
)

func TestNormalizeAccount(t *testing.T) {
	t.Run("checksums hex addresses", func(t *testing.T) {
		for _, in := range []string{
			"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
			"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		} {
			got, err := normalizeAccount(in)
			require.NoError(t, err)
			assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)
		}
	})

	t.Run("non-hex identifiers pass through", func(t *testing.T) {
		got, err := normalizeAccount("vault:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
		require.NoError(t, err)
		assert.Equal(t, "vault:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", got)
	})

	t.Run("rejects malformed hex", func(t *testing.T) {
		for _, in := range []string{"", "0x123", "0xzzze94c9b9a09f33669435e7ef1beaed00000000"} {
			_, err := normalizeAccount(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}

func TestParsePage(t *testing.T) {
	cases := []struct {
		query       string
		limit, want uint64
	}{
		{"", 50, 0},
		{"?limit=10&offset=3", 10, 3},
		{"?limit=9999", 500, 0},
		{"?limit=0", 50, 0},
		{"?limit=abc&offset=xyz", 50, 0},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/api/markets"+tc.query, nil)
		limit, offset := parsePage(r)
		assert.Equal(t, tc.limit, limit, "query %q", tc.query)
		assert.Equal(t, tc.want, offset, "query %q", tc.query)
	}
}

func TestUnwrapSentinel(t *testing.T) {
	wrapped := fmt.Errorf("settle: claim winnings: %w", domain.ErrNoWinnings)
	assert.Equal(t, domain.ErrNoWinnings, unwrapSentinel(wrapped))
	assert.Equal(t, domain.ErrNotFound, unwrapSentinel(domain.ErrNotFound))
}
