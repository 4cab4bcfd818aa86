package oauth

import (
	"fmt"
	"time"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/models"
	"github.com/pkazanov/diskbot/internal/secrets"
)

// Record wraps a stored DiskToken with the process cipher. Secrets are
// decrypted only on read and encrypted back on write; the underlying
// model never holds plaintext. Expiry is always evaluated in UTC and an
// expired secret fails instead of returning stale plaintext
type Record struct {
	token  models.DiskToken
	cipher *secrets.Cipher
}

func NewRecord(token models.DiskToken, cipher *secrets.Cipher) Record {
	return Record{token: token, cipher: cipher}
}

// Model returns the persisted form, ciphertext included
func (r *Record) Model() models.DiskToken {
	return r.token
}

// HasAccessToken reports existence only, not validity
func (r *Record) HasAccessToken() bool {
	return r.token.AccessToken != nil
}

// AccessToken returns the plaintext access token if present and unexpired
func (r *Record) AccessToken(now time.Time) (string, error) {
	return r.read(r.token.AccessToken, r.token.AccessTokenExpiresAt, now)
}

// AccessTokenType returns the stored token type or empty string
func (r *Record) AccessTokenType() string {
	if r.token.AccessTokenType == nil {
		return ""
	}
	return *r.token.AccessTokenType
}

// RefreshToken returns the plaintext refresh token. Refresh tokens carry
// no expiry of their own: absence is the only failure mode
func (r *Record) RefreshToken() (string, error) {
	return r.read(r.token.RefreshToken, nil, time.Time{})
}

// InsertToken returns the plaintext insert token if present and unexpired
func (r *Record) InsertToken(now time.Time) (string, error) {
	return r.read(r.token.InsertToken, r.token.InsertTokenExpiresAt, now)
}

// SetAccessToken encrypts and stores the access token with its metadata
func (r *Record) SetAccessToken(plaintext string, tokenType string, expiresAt time.Time) error {
	ciphertext, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("error while encrypting access token. Err: %w", err)
	}

	expiresAt = expiresAt.UTC()
	r.token.AccessToken = &ciphertext
	r.token.AccessTokenType = &tokenType
	r.token.AccessTokenExpiresAt = &expiresAt
	return nil
}

// SetRefreshToken encrypts and stores the refresh token
func (r *Record) SetRefreshToken(plaintext string) error {
	ciphertext, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("error while encrypting refresh token. Err: %w", err)
	}

	r.token.RefreshToken = &ciphertext
	return nil
}

// SetInsertToken encrypts and stores the insert token with its expiry
func (r *Record) SetInsertToken(plaintext string, expiresAt time.Time) error {
	ciphertext, err := r.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("error while encrypting insert token. Err: %w", err)
	}

	expiresAt = expiresAt.UTC()
	r.token.InsertToken = &ciphertext
	r.token.InsertTokenExpiresAt = &expiresAt
	return nil
}

// ClearInsertToken drops the pending authorization attempt
func (r *Record) ClearInsertToken() {
	r.token.InsertToken = nil
	r.token.InsertTokenExpiresAt = nil
}

// ClearAll nulls every secret and expiry field. Idempotent
func (r *Record) ClearAll() {
	r.token.AccessToken = nil
	r.token.AccessTokenType = nil
	r.token.AccessTokenExpiresAt = nil
	r.token.RefreshToken = nil
	r.ClearInsertToken()
}

// read decrypts a stored secret enforcing expiry.
// A token expires at the boundary instant: now >= expiresAt is expired
func (r *Record) read(ciphertext *string, expiresAt *time.Time, now time.Time) (string, error) {
	if ciphertext == nil {
		return "", apperrors.ErrTokenAbsent
	}

	if expiresAt != nil && !now.UTC().Before(expiresAt.UTC()) {
		return "", apperrors.ErrTokenExpired
	}

	plaintext, err := r.cipher.Decrypt(*ciphertext)
	if err != nil {
		return "", fmt.Errorf("error while decrypting token. Err: %w", err)
	}

	return plaintext, nil
}
