package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/models"
)

type DiskTokenRepo struct {
	DB DBTX
}

const createDiskToken = `-- name: CreateDiskToken
INSERT INTO disk_tokens (id, user_id)
VALUES ($1, $2)
RETURNING id, created_at, updated_at, user_id,
          access_token, access_token_type, access_token_expires_at,
          refresh_token, insert_token, insert_token_expires_at
`

// Create empty token record. The unique constraint on user_id keeps the
// relation 1:1 even under concurrent commands
func (r *DiskTokenRepo) Create(ctx context.Context, userID uuid.UUID) (models.DiskToken, error) {
	rows, _ := r.DB.Query(ctx, createDiskToken, uuid.New(), userID)
	token, err := pgx.CollectOneRow(rows, rowToDiskToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenRecordExists)
		}
		return token, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

const getDiskTokenByUserID = `-- name: GetDiskTokenByUserID
SELECT id, created_at, updated_at, user_id,
       access_token, access_token_type, access_token_expires_at,
       refresh_token, insert_token, insert_token_expires_at
FROM disk_tokens
WHERE user_id = $1
`

func (r *DiskTokenRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (models.DiskToken, error) {
	rows, _ := r.DB.Query(ctx, getDiskTokenByUserID, userID)
	token, err := pgx.CollectOneRow(rows, rowToDiskToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenRecordNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const updateDiskToken = `-- name: UpdateDiskToken
UPDATE disk_tokens
SET access_token = $2,
    access_token_type = $3,
    access_token_expires_at = $4,
    refresh_token = $5,
    insert_token = $6,
    insert_token_expires_at = $7,
    updated_at = now()
WHERE user_id = $1
RETURNING id, created_at, updated_at, user_id,
          access_token, access_token_type, access_token_expires_at,
          refresh_token, insert_token, insert_token_expires_at
`

// Update overwrites every token column at once, last committed write wins
func (r *DiskTokenRepo) Update(ctx context.Context, token models.DiskToken) (models.DiskToken, error) {
	rows, _ := r.DB.Query(ctx, updateDiskToken,
		token.UserID,
		token.AccessToken, token.AccessTokenType, token.AccessTokenExpiresAt,
		token.RefreshToken,
		token.InsertToken, token.InsertTokenExpiresAt,
	)
	updated, err := pgx.CollectOneRow(rows, rowToDiskToken)

	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, pgx.ErrNoRows):
		return updated, fmt.Errorf("repo error: %w", apperrors.ErrTokenRecordNotFound)
	default:
		return updated, fmt.Errorf("db error: %w", err)
	}
}

const sweepExpiredInsertTokens = `-- name: SweepExpiredInsertTokens
UPDATE disk_tokens
SET insert_token = NULL,
    insert_token_expires_at = NULL,
    updated_at = now()
WHERE insert_token IS NOT NULL AND insert_token_expires_at < $1
`

func (r *DiskTokenRepo) SweepExpiredInsertTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, sweepExpiredInsertTokens, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToDiskToken(row pgx.CollectableRow) (models.DiskToken, error) {
	var t models.DiskToken
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.UserID,
		&t.AccessToken, &t.AccessTokenType, &t.AccessTokenExpiresAt,
		&t.RefreshToken, &t.InsertToken, &t.InsertTokenExpiresAt,
	)
	return t, err
}
