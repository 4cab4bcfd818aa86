package models

import (
	"time"

	"github.com/google/uuid"
)

// DiskToken holds per-user Yandex.Disk credentials, one row per user.
// Every secret column stores ciphertext; expiry timestamps are UTC.
type DiskToken struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uuid.UUID

	AccessToken          *string
	AccessTokenType      *string
	AccessTokenExpiresAt *time.Time

	RefreshToken *string

	// Single-use secret that exists only while an authorization attempt
	// is in flight. Never leaves the process except inside the signed state.
	InsertToken          *string
	InsertTokenExpiresAt *time.Time
}
