package models

import (
	"time"

	"github.com/google/uuid"
)

// Telegram chat types as reported in webhook updates
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

type Chat struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	UserID     uuid.UUID
	TelegramID int64
	Type       string
}
