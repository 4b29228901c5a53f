package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenEncryptionRoundTrip(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	ciphertext, err := EncryptToken("access-sandbox-abc123")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "access-sandbox")

	plaintext, err := DecryptToken(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "access-sandbox-abc123", plaintext)
}

func TestTokenEncryption_NonceVaries(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	a, err := EncryptToken("same-token")
	require.NoError(t, err)
	b, err := EncryptToken("same-token")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenEncryption_BadKey(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "too-short")

	_, err := EncryptToken("anything")
	assert.Error(t, err)
}

func TestDecryptToken_Tampered(t *testing.T) {
	t.Setenv("DATA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")

	_, err := DecryptToken("bm90LXJlYWwtY2lwaGVydGV4dA==")
	assert.Error(t, err)
}
