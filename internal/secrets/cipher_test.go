package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazanov/diskbot/internal/apperrors"
)

func TestNew(t *testing.T) {
	t.Run("key too short", func(t *testing.T) {
		_, err := New("short")
		require.ErrorIs(t, err, apperrors.ErrCrypto)
	})

	t.Run("valid key", func(t *testing.T) {
		c, err := New("long-enough-test-cipher-key")
		require.NoError(t, err)
		require.NotNil(t, c)
	})
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := New("long-enough-test-cipher-key")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "x", "OAuth token value", strings.Repeat("a", 4096)} {
		got, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		back, err := c.Decrypt(got)
		require.NoError(t, err)
		assert.Equal(t, plaintext, back)
	}
}

func TestCipherCiphertextIsNotPlaintext(t *testing.T) {
	c, err := New("long-enough-test-cipher-key")
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("secret-token")
	require.NoError(t, err)

	assert.NotContains(t, ciphertext, "secret-token")

	// Random nonce: same plaintext never encrypts to the same ciphertext
	another, err := c.Encrypt("secret-token")
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, another)
}

func TestCipherDecryptFailures(t *testing.T) {
	c, err := New("long-enough-test-cipher-key")
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("secret-token")
	require.NoError(t, err)

	t.Run("not hex", func(t *testing.T) {
		_, err := c.Decrypt("zzzz")
		require.ErrorIs(t, err, apperrors.ErrCrypto)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := c.Decrypt(ciphertext[:10])
		require.ErrorIs(t, err, apperrors.ErrCrypto)
	})

	t.Run("corrupted", func(t *testing.T) {
		corrupted := []byte(ciphertext)
		if corrupted[len(corrupted)-1] == 'a' {
			corrupted[len(corrupted)-1] = 'b'
		} else {
			corrupted[len(corrupted)-1] = 'a'
		}

		_, err := c.Decrypt(string(corrupted))
		require.ErrorIs(t, err, apperrors.ErrCrypto)
	})

	t.Run("different key", func(t *testing.T) {
		other, err := New("another-completely-different-key")
		require.NoError(t, err)

		_, err = other.Decrypt(ciphertext)
		require.ErrorIs(t, err, apperrors.ErrCrypto)
	})
}

func TestRandomHex(t *testing.T) {
	one, err := RandomHex(20)
	require.NoError(t, err)
	assert.Len(t, one, 40, "20 bytes should encode to 40 hex characters")

	two, err := RandomHex(20)
	require.NoError(t, err)
	assert.NotEqual(t, one, two, "random values should not repeat")
}
