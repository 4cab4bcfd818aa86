package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	TelegramID int64
	IsBot      bool
}
