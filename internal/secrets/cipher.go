package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/pkazanov/diskbot/internal/apperrors"
)

const (
	minKeyLen       = 16
	kdfIterations   = 10000
	kdfSaltLabel    = "diskbot-token-cipher"
	derivedKeyBytes = 32 // AES-256
)

// Cipher encrypts and decrypts small secrets (tokens) with a process-wide
// key. The key is derived once at startup and never rotated at runtime.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a 32 byte AES key from the configured key string with
// PBKDF2-SHA256 and prepares an AES-256-GCM cipher.
func New(key string) (*Cipher, error) {
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("cipher key must be at least %d characters: %w", minKeyLen, apperrors.ErrCrypto)
	}

	derived := pbkdf2.Key([]byte(key), []byte(kdfSaltLabel), kdfIterations, derivedKeyBytes, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %v: %w", err, apperrors.ErrCrypto)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %v: %w", err, apperrors.ErrCrypto)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext with a random nonce and returns
// hex(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %v: %w", err, apperrors.ErrCrypto)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Corrupt or truncated ciphertext fails with
// an error wrapping apperrors.ErrCrypto.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	data, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("hex decode: %v: %w", err, apperrors.ErrCrypto)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short: %w", apperrors.ErrCrypto)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %v: %w", err, apperrors.ErrCrypto)
	}

	return string(plaintext), nil
}

// RandomHex returns a cryptographically random hex string encoding the
// given number of bytes. Used for insert tokens.
func RandomHex(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random bytes: %v: %w", err, apperrors.ErrCrypto)
	}
	return hex.EncodeToString(b), nil
}
