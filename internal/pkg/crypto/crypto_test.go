package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeSHA256(t *testing.T) {
	sum := ComputeSHA256([]byte("hello"))
	require.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	require.Len(t, a, SecretSize*2)
	require.NotEqual(t, a, b)
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16)
	require.NoError(t, err)
	require.Len(t, pw, 16)
	for _, c := range pw {
		require.True(t, strings.ContainsRune(passwordChars, c))
	}
}
