// Package crypto provides admin-token digesting so deployed configuration
// can carry a derived token instead of the raw secret.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// tokenIterations is the OWASP-recommended minimum for PBKDF2-SHA256.
	tokenIterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// keyLen is the derived key length in bytes.
	keyLen = 32
	// scheme tags the digest format for forward compatibility.
	scheme = "pbkdf2"
)

// DigestToken derives a storable digest from a raw token. The output format
// is "pbkdf2$<iterations>$<salt-hex>$<key-hex>".
func DigestToken(token string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(token), salt, tokenIterations, keyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		scheme, tokenIterations, hex.EncodeToString(salt), hex.EncodeToString(key),
	), nil
}

// VerifyToken reports whether token matches a digest produced by
// DigestToken. Malformed digests verify as false, never as a panic.
func VerifyToken(digest, token string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 4 || parts[0] != scheme {
		return false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(token), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
