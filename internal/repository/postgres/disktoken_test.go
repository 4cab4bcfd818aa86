package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/models"
	"github.com/pkazanov/diskbot/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func Test_DiskTokenRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	createUser := func(t *testing.T, tx pgx.Tx, telegramID int64) models.User {
		t.Helper()
		user, err := (&UserRepo{DB: tx}).CreateUser(t.Context(), telegramID, false)
		require.NoError(t, err)
		return user
	}

	t.Run("create empty record", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}
			user := createUser(t, tx, 2001)

			token, err := r.Create(t.Context(), user.ID)

			require.NoError(t, err)
			assert.Equal(t, user.ID, token.UserID)
			assert.Nil(t, token.AccessToken)
			assert.Nil(t, token.RefreshToken)
			assert.Nil(t, token.InsertToken)
		})
	})

	t.Run("second record for same user fails", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}
			user := createUser(t, tx, 2002)

			_, err := r.Create(t.Context(), user.ID)
			require.NoError(t, err)

			_, err = r.Create(t.Context(), user.ID)
			assert.ErrorIs(t, err, apperrors.ErrTokenRecordExists, "user_id is unique")
		})
	})

	t.Run("get by user id", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}
			user := createUser(t, tx, 2003)

			created, err := r.Create(t.Context(), user.ID)
			require.NoError(t, err)

			got, err := r.GetByUserID(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get by user id not found", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}

			_, err := r.GetByUserID(t.Context(), uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrTokenRecordNotFound)
		})
	})

	t.Run("update overwrites all token columns", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}
			user := createUser(t, tx, 2004)

			token, err := r.Create(t.Context(), user.ID)
			require.NoError(t, err)

			expires := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
			token.AccessToken = ptr("ciphertext-access")
			token.AccessTokenType = ptr("bearer")
			token.AccessTokenExpiresAt = &expires
			token.RefreshToken = ptr("ciphertext-refresh")

			updated, err := r.Update(t.Context(), token)
			require.NoError(t, err)
			require.NotNil(t, updated.AccessToken)
			assert.Equal(t, "ciphertext-access", *updated.AccessToken)
			assert.Equal(t, "bearer", *updated.AccessTokenType)
			assert.WithinDuration(t, expires, *updated.AccessTokenExpiresAt, time.Millisecond)

			// Nil pointers null the columns back
			token.AccessToken = nil
			token.AccessTokenType = nil
			token.AccessTokenExpiresAt = nil
			token.RefreshToken = nil

			cleared, err := r.Update(t.Context(), token)
			require.NoError(t, err)
			assert.Nil(t, cleared.AccessToken)
			assert.Nil(t, cleared.RefreshToken)
		})
	})

	t.Run("update unknown user fails", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}

			_, err := r.Update(t.Context(), models.DiskToken{UserID: uuid.New()})

			assert.ErrorIs(t, err, apperrors.ErrTokenRecordNotFound)
		})
	})

	t.Run("sweep clears only expired insert tokens", func(t *testing.T) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			r := DiskTokenRepo{DB: tx}
			expiredUser := createUser(t, tx, 2005)
			pendingUser := createUser(t, tx, 2006)

			expired, err := r.Create(t.Context(), expiredUser.ID)
			require.NoError(t, err)
			expired.InsertToken = ptr("old-ciphertext")
			expired.InsertTokenExpiresAt = ptr(time.Now().UTC().Add(-time.Hour))
			_, err = r.Update(t.Context(), expired)
			require.NoError(t, err)

			pending, err := r.Create(t.Context(), pendingUser.ID)
			require.NoError(t, err)
			pending.InsertToken = ptr("fresh-ciphertext")
			pending.InsertTokenExpiresAt = ptr(time.Now().UTC().Add(time.Hour))
			_, err = r.Update(t.Context(), pending)
			require.NoError(t, err)

			swept, err := r.SweepExpiredInsertTokens(t.Context(), time.Now().UTC())
			require.NoError(t, err)
			assert.Equal(t, int64(1), swept)

			got, err := r.GetByUserID(t.Context(), expiredUser.ID)
			require.NoError(t, err)
			assert.Nil(t, got.InsertToken)

			got, err = r.GetByUserID(t.Context(), pendingUser.ID)
			require.NoError(t, err)
			require.NotNil(t, got.InsertToken)
			assert.Equal(t, "fresh-ciphertext", *got.InsertToken)
		})
	})
}
