// file: auth/refresh_token.go

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const refreshTokenBytes = 32

// RefreshTokenGenerator produces opaque refresh tokens: 256 random bits,
// base64 encoded, with no embedded structure.
type RefreshTokenGenerator struct {
	rand io.Reader
}

func NewRefreshTokenGenerator() *RefreshTokenGenerator {
	return &RefreshTokenGenerator{rand: rand.Reader}
}

func (g *RefreshTokenGenerator) Generate() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// HashRefreshToken returns the hex SHA-256 digest stored in place of the
// refresh token itself.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchRefreshToken compares a presented token against a stored digest in
// constant time.
func MatchRefreshToken(storedHash, presented string) bool {
	if storedHash == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashRefreshToken(presented))) == 1
}
