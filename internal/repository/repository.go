package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkazanov/diskbot/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user with its telegram identity
	CreateUser(ctx context.Context, telegramID int64, isBot bool) (models.User, error)

	// Get user by internal id or by telegram id
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
}

// Chat repository interface
type ChatRepo interface {
	// Save chat for user. Saving a known telegram chat again is a no-op
	SaveChat(ctx context.Context, chat models.Chat) (models.Chat, error)

	// Get user's private chat
	// If the user has no private chat must return apperrors.ErrChatNotFound
	GetPrivateChat(ctx context.Context, userID uuid.UUID) (models.Chat, error)
}

// DiskToken repository interface
// One record per user, created empty on first authorization attempt
type DiskTokenRepo interface {
	// Create empty token record for user
	Create(ctx context.Context, userID uuid.UUID) (models.DiskToken, error)

	// Get token record for user
	// If record not found must return apperrors.ErrTokenRecordNotFound
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.DiskToken, error)

	// Overwrite every token column of the record with the given values
	// (nil pointers null the column)
	Update(ctx context.Context, token models.DiskToken) (models.DiskToken, error)

	// Null insert token columns for records whose insert token expired
	// before the cutoff. Returns the number of swept records
	SweepExpiredInsertTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Storage aggregates repositories over a single connection or transaction
type Storage interface {
	User() UserRepo
	Chat() ChatRepo
	DiskToken() DiskTokenRepo

	// Run fn within a database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
