package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/models"
)

type ChatRepo struct {
	DB DBTX
}

const saveChat = `-- name: SaveChat
INSERT INTO chats (id, user_id, telegram_id, type)
VALUES ($1, $2, $3, $4)
ON CONFLICT (telegram_id) DO UPDATE SET type = EXCLUDED.type
RETURNING id, created_at, user_id, telegram_id, type
`

// Save chat. A chat seen before keeps its row, only the type is refreshed
func (r *ChatRepo) SaveChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	id := chat.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, saveChat, id, chat.UserID, chat.TelegramID, chat.Type)
	saved, err := pgx.CollectOneRow(rows, rowToChat)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getPrivateChat = `-- name: GetPrivateChat
SELECT id, created_at, user_id, telegram_id, type FROM chats
WHERE user_id = $1 AND type = $2
ORDER BY created_at
LIMIT 1
`

func (r *ChatRepo) GetPrivateChat(ctx context.Context, userID uuid.UUID) (models.Chat, error) {
	rows, _ := r.DB.Query(ctx, getPrivateChat, userID, models.ChatTypePrivate)
	chat, err := pgx.CollectOneRow(rows, rowToChat)

	switch {
	case err == nil:
		return chat, nil
	case errors.Is(err, pgx.ErrNoRows):
		return chat, fmt.Errorf("repo error: %w", apperrors.ErrChatNotFound)
	default:
		return chat, fmt.Errorf("db error: %w", err)
	}
}

func rowToChat(row pgx.CollectableRow) (models.Chat, error) {
	var c models.Chat
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UserID, &c.TelegramID, &c.Type)
	return c, err
}
