package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/models"
	"github.com/pkazanov/diskbot/internal/testutil"
)

func Test_ChatRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createUser := func(t *testing.T, tx pgx.Tx, telegramID int64) models.User {
		t.Helper()
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), telegramID, false)
		require.NoError(t, err)
		return user
	}

	t.Run("save chat ok", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ChatRepo{DB: tx}
			user := createUser(t, tx, 1001)

			chat, err := r.SaveChat(t.Context(), models.Chat{
				UserID:     user.ID,
				TelegramID: 1001,
				Type:       models.ChatTypePrivate,
			})

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, chat.ID)
			assert.Equal(t, user.ID, chat.UserID)
			assert.Equal(t, models.ChatTypePrivate, chat.Type)
		})
	})

	t.Run("save same chat twice keeps the row", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ChatRepo{DB: tx}
			user := createUser(t, tx, 1002)

			first, err := r.SaveChat(t.Context(), models.Chat{UserID: user.ID, TelegramID: 1002, Type: models.ChatTypePrivate})
			require.NoError(t, err)

			second, err := r.SaveChat(t.Context(), models.Chat{UserID: user.ID, TelegramID: 1002, Type: models.ChatTypePrivate})
			require.NoError(t, err)

			assert.Equal(t, first.ID, second.ID, "known telegram chat should keep its row")
		})
	})

	t.Run("get private chat ok", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ChatRepo{DB: tx}
			user := createUser(t, tx, 1003)

			_, err := r.SaveChat(t.Context(), models.Chat{UserID: user.ID, TelegramID: 5003, Type: models.ChatTypeGroup})
			require.NoError(t, err)
			saved, err := r.SaveChat(t.Context(), models.Chat{UserID: user.ID, TelegramID: 1003, Type: models.ChatTypePrivate})
			require.NoError(t, err)

			got, err := r.GetPrivateChat(t.Context(), user.ID)

			require.NoError(t, err)
			assert.Equal(t, saved.ID, got.ID, "group chat should not be returned as private")
		})
	})

	t.Run("get private chat not found", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := ChatRepo{DB: tx}
			user := createUser(t, tx, 1004)

			_, err := r.SaveChat(t.Context(), models.Chat{UserID: user.ID, TelegramID: 5004, Type: models.ChatTypeGroup})
			require.NoError(t, err)

			_, err = r.GetPrivateChat(t.Context(), user.ID)

			assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
		})
	})
}
