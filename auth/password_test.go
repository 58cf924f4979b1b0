package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// TestBcryptHasher_HashAndVerify ensures that password hashing and verification work correctly.
func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	password := "mySecretPassword123"

	hashedPassword, err := hasher.Hash(password)
	require.NoError(t, err)
	assert.NotEqual(t, password, hashedPassword, "hash must not equal the plaintext")

	assert.True(t, hasher.Verify(password, hashedPassword))
	assert.False(t, hasher.Verify("notMyPassword", hashedPassword))
}

func TestBcryptHasher_SaltPerCall(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	first, err := hasher.Hash("secret1")
	require.NoError(t, err)
	second, err := hasher.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("secret1", first))
	assert.True(t, hasher.Verify("secret1", second))
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	assert.False(t, hasher.Verify("secret1", ""))
	assert.False(t, hasher.Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, hasher.Verify("secret1", "$2a$04$short"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.MaxCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 10, NewBcryptHasher(10).cost)
}
