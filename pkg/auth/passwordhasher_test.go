package auth

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScryptHasher_HashFormat(t *testing.T) {
	hasher := NewScryptHasher()

	encoded, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)

	parts := strings.Split(encoded, ".")
	require.Len(t, parts, 2, "encoded hash should be <hash>.<salt>")

	key, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	salt, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(salt), 16)
}

func TestScryptHasher_VerifyRoundTrip(t *testing.T) {
	hasher := NewScryptHasher()

	encoded, err := hasher.Hash("s3cret!")
	require.NoError(t, err)

	ok, err := hasher.Verify("s3cret!", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("s3cret?", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScryptHasher_SaltIsRandom(t *testing.T) {
	hasher := NewScryptHasher()

	first, err := hasher.Hash("same password")
	require.NoError(t, err)
	second, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	// Both still verify
	ok, err := hasher.Verify("same password", first)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = hasher.Verify("same password", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScryptHasher_VerifyMalformed(t *testing.T) {
	hasher := NewScryptHasher()

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"empty parts", "."},
		{"non-hex hash", "zzzz.00112233445566778899aabbccddeeff"},
		{"non-hex salt", "00ff.zz"},
		{"truncated hash", "00ff.00112233445566778899aabbccddeeff"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := hasher.Verify("whatever", tc.encoded)
			assert.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
