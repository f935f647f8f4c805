package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
}

func TestGenerateResetCode(t *testing.T) {
	seen := make(map[string]bool)
	for range_i := 0; range_i < 20; range_i++ {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		require.Len(t, code, ResetCodeDigits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code must be numeric: %q", code)
		}
		seen[code] = true
	}
	// 20 draws from a million values colliding every time would mean a
	// broken random source.
	assert.Greater(t, len(seen), 1)
}

func TestCodeMatches(t *testing.T) {
	digest := HashCode("123456")
	assert.True(t, CodeMatches("123456", digest))
	assert.False(t, CodeMatches("654321", digest))
	assert.False(t, CodeMatches("", digest))
}
