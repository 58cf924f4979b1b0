package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRefreshTokenGenerator_Generate(t *testing.T) {
	gen := NewRefreshTokenGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := gen.Generate()
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		_, dup := seen[token]
		assert.False(t, dup, "tokens must not repeat")
		seen[token] = struct{}{}
	}
}

func TestRefreshTokenGenerator_DeterministicSource(t *testing.T) {
	gen := &RefreshTokenGenerator{rand: bytes.NewReader(bytes.Repeat([]byte{0xAB}, 32))}

	token, err := gen.Generate()
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, 32)), token)
}

func TestRefreshTokenGenerator_ReaderError(t *testing.T) {
	gen := &RefreshTokenGenerator{rand: failingReader{}}

	_, err := gen.Generate()
	assert.Error(t, err)
}

func TestMatchRefreshToken(t *testing.T) {
	stored := HashRefreshToken("token-a")

	assert.Len(t, stored, 64)
	assert.True(t, MatchRefreshToken(stored, "token-a"))
	assert.False(t, MatchRefreshToken(stored, "token-b"))
	assert.False(t, MatchRefreshToken(stored, ""))
	assert.False(t, MatchRefreshToken("", "token-a"))
}
