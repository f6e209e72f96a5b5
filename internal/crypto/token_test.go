package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestAndVerify(t *testing.T) {
	digest, err := DigestToken("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "pbkdf2$"))

	assert.True(t, VerifyToken(digest, "s3cret"))
	assert.False(t, VerifyToken(digest, "wrong"))
	assert.False(t, VerifyToken(digest, ""))
}

func TestDigestsAreSalted(t *testing.T) {
	a, err := DigestToken("same")
	require.NoError(t, err)
	b, err := DigestToken("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, VerifyToken(a, "same"))
	assert.True(t, VerifyToken(b, "same"))
}

func TestVerifyRejectsMalformedDigests(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"pbkdf2$abc$00$00",
		"pbkdf2$-1$00$00",
		"pbkdf2$1000$zz$00",
		"pbkdf2$1000$00$zz",
		"pbkdf2$1000$00$",
		"scrypt$1000$00$00",
		"pbkdf2$1000$00",
	}
	for _, digest := range cases {
		assert.False(t, VerifyToken(digest, "anything"), "digest %q", digest)
	}
}
