package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/models"
	"github.com/pkazanov/diskbot/internal/repository"
	"github.com/pkazanov/diskbot/internal/secrets"
	"github.com/pkazanov/diskbot/internal/service/statetoken"
	"github.com/pkazanov/diskbot/internal/telegram"
	"github.com/pkazanov/diskbot/internal/yandex"
)

const (
	defaultInsertTokenBytes = 16
	defaultInsertTokenTTL   = 10 * time.Minute
)

// Provider is the outbound OAuth surface of Yandex
type Provider interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (yandex.Token, error)
	Refresh(ctx context.Context, refreshToken string) (yandex.Token, error)
}

// Messenger delivers chat messages. Sensitive links only ever go to the
// user's private conversation
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendMessageOptions) error
}

type Config struct {
	// Random insert token size in bytes
	// If not set than default is used
	InsertTokenBytes int

	// Lifetime of a pending authorization attempt
	// If not set than default is used
	InsertTokenTTL time.Duration
}

// Service owns the token custody and exchange flows
type Service struct {
	insertTokenBytes int
	insertTokenTTL   time.Duration

	storage  repository.Storage
	cipher   *secrets.Cipher
	states   *statetoken.Codec
	provider Provider
	tg       Messenger
	logger   logger.Logger
}

func NewService(
	cfg Config,
	storage repository.Storage,
	cipher *secrets.Cipher,
	states *statetoken.Codec,
	provider Provider,
	tg Messenger,
	l logger.Logger,
) (*Service, error) {
	if storage == nil || cipher == nil || states == nil || provider == nil || tg == nil {
		return nil, errors.New("storage, cipher, states, provider and messenger must not be nil")
	}

	if cfg.InsertTokenBytes == 0 {
		cfg.InsertTokenBytes = defaultInsertTokenBytes
	}
	if cfg.InsertTokenTTL == 0 {
		cfg.InsertTokenTTL = defaultInsertTokenTTL
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		insertTokenBytes: cfg.InsertTokenBytes,
		insertTokenTTL:   cfg.InsertTokenTTL,
		storage:          storage,
		cipher:           cipher,
		states:           states,
		provider:         provider,
		tg:               tg,
		logger:           l,
	}, nil
}

// StartRequest identifies the user and the chat the command came from
type StartRequest struct {
	TelegramUserID int64
	IsBot          bool
	ChatTelegramID int64
	ChatType       string
}

// StartAuthorization handles the authorization command.
// A valid access token short-circuits, a working refresh token renews
// silently, and only when neither path works a new attempt is issued
// and the authorization link is sent to the user's private chat
func (s *Service) StartAuthorization(ctx context.Context, req StartRequest) error {
	user, err := s.getOrCreateUser(ctx, req)
	if err != nil {
		return fmt.Errorf("error while registering user. Err: %w", err)
	}

	record, err := s.getOrCreateRecord(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error while preparing token record. Err: %w", err)
	}

	now := time.Now().UTC()

	// An access token that still works must not be invalidated by a
	// repeated command
	if record.HasAccessToken() {
		if _, err := record.AccessToken(now); err == nil {
			return s.tg.SendMessage(ctx, req.ChatTelegramID, msgAlreadyAuthorized, telegram.SendMessageOptions{})
		}
	}

	// Re-invoking the command never forces a manual grant while a
	// refresh token can satisfy it silently
	if s.refresh(ctx, &record) {
		if chat, err := s.storage.Chat().GetPrivateChat(ctx, user.ID); err == nil {
			text := renewedText(time.Now().UTC())
			_ = s.tg.SendMessage(ctx, chat.TelegramID, text, telegram.SendMessageOptions{ParseMode: telegram.ParseModeHTML})
		}
		return nil
	}

	// No silent path: issue a fresh attempt
	record.ClearAll()

	insertToken, err := secrets.RandomHex(s.insertTokenBytes)
	if err != nil {
		return fmt.Errorf("error while generating insert token. Err: %w", err)
	}
	if err := record.SetInsertToken(insertToken, now.Add(s.insertTokenTTL)); err != nil {
		return err
	}

	if _, err := s.storage.DiskToken().Update(ctx, record.Model()); err != nil {
		return fmt.Errorf("error while saving insert token. Err: %w", err)
	}

	state, err := s.states.Encode(user.ID, insertToken)
	if err != nil {
		return err
	}

	// The link carries the signed state and is sensitive: deliver it to
	// the private conversation only, never into a shared chat
	privateChat, err := s.storage.Chat().GetPrivateChat(ctx, user.ID)
	if errors.Is(err, apperrors.ErrChatNotFound) {
		return s.tg.SendMessage(ctx, req.ChatTelegramID, msgNoPrivateChat, telegram.SendMessageOptions{})
	}
	if err != nil {
		return fmt.Errorf("error while looking up private chat. Err: %w", err)
	}

	text := authorizationLinkText(s.provider.AuthorizationURL(state), s.insertTokenTTL)
	return s.tg.SendMessage(ctx, privateChat.TelegramID, text, telegram.SendMessageOptions{
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
	})
}

// CompleteAuthorization finishes the round-trip from the provider
// callback. The signed state proves nothing by itself: the embedded
// insert token must also match the currently stored one, which binds the
// callback to the specific pending attempt and defeats replay of an old
// but validly signed state
func (s *Service) CompleteAuthorization(ctx context.Context, code string, state string) error {
	claims, err := s.states.Decode(state)
	if err != nil {
		return err
	}

	user, err := s.storage.User().GetUserByID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return fmt.Errorf("%v: %w", err, apperrors.ErrUnknownUser)
	}
	if err != nil {
		return err
	}

	tokenModel, err := s.storage.DiskToken().GetByUserID(ctx, user.ID)
	if errors.Is(err, apperrors.ErrTokenRecordNotFound) {
		return fmt.Errorf("%v: %w", err, apperrors.ErrUnknownUser)
	}
	if err != nil {
		return err
	}

	record := NewRecord(tokenModel, s.cipher)

	now := time.Now().UTC()
	stored, err := record.InsertToken(now)
	if err != nil {
		// Absent, expired or undecryptable: the attempt this state was
		// issued for is gone
		return fmt.Errorf("%v: %w", err, apperrors.ErrStaleState)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(claims.InsertToken)) != 1 {
		return fmt.Errorf("insert token mismatch: %w", apperrors.ErrStaleState)
	}

	// The pending attempt survives a failed exchange so the user may
	// retry within the insert token lifetime
	providerToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}

	record.ClearInsertToken()
	if err := record.SetAccessToken(providerToken.AccessToken, providerToken.TokenType, providerToken.ExpiresAt); err != nil {
		return err
	}
	if providerToken.RefreshToken != "" {
		if err := record.SetRefreshToken(providerToken.RefreshToken); err != nil {
			return err
		}
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		_, err := st.DiskToken().Update(ctx, record.Model())
		return err
	})
	if err != nil {
		return fmt.Errorf("error while saving granted tokens. Err: %w", err)
	}

	s.logger.Info("Authorization completed", "user_id", user.ID)

	// Best effort notification, authorization itself already succeeded
	if chat, err := s.storage.Chat().GetPrivateChat(ctx, user.ID); err == nil {
		_ = s.tg.SendMessage(ctx, chat.TelegramID, msgAuthorized, telegram.SendMessageOptions{ParseMode: telegram.ParseModeHTML})
	}

	return nil
}

// AccessToken returns a currently valid plaintext access token for the
// user, refreshing it silently when expired. Callers should treat
// apperrors.ErrTokenAbsent and apperrors.ErrTokenExpired as "ask the
// user to authorize again"
func (s *Service) AccessToken(ctx context.Context, telegramUserID int64) (string, error) {
	user, err := s.storage.User().GetUserByTelegramID(ctx, telegramUserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return "", fmt.Errorf("%v: %w", err, apperrors.ErrTokenAbsent)
	}
	if err != nil {
		return "", err
	}

	tokenModel, err := s.storage.DiskToken().GetByUserID(ctx, user.ID)
	if errors.Is(err, apperrors.ErrTokenRecordNotFound) {
		return "", fmt.Errorf("%v: %w", err, apperrors.ErrTokenAbsent)
	}
	if err != nil {
		return "", err
	}

	record := NewRecord(tokenModel, s.cipher)

	token, err := record.AccessToken(time.Now().UTC())
	if err == nil {
		return token, nil
	}

	if errors.Is(err, apperrors.ErrTokenExpired) && s.refresh(ctx, &record) {
		return record.AccessToken(time.Now().UTC())
	}

	return "", err
}

// Revoke clears all stored secrets for the user. Idempotent, local only:
// the provider side token stays valid until it expires there
func (s *Service) Revoke(ctx context.Context, telegramUserID int64) error {
	user, err := s.storage.User().GetUserByTelegramID(ctx, telegramUserID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	tokenModel, err := s.storage.DiskToken().GetByUserID(ctx, user.ID)
	if errors.Is(err, apperrors.ErrTokenRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	record := NewRecord(tokenModel, s.cipher)
	record.ClearAll()

	if _, err := s.storage.DiskToken().Update(ctx, record.Model()); err != nil {
		return fmt.Errorf("error while revoking tokens. Err: %w", err)
	}

	s.logger.Info("Tokens revoked", "user_id", user.ID)
	return nil
}

// SweepExpiredInsertTokens clears pending attempts whose insert token
// already expired. Hygiene only: an expired attempt cannot complete anyway
func (s *Service) SweepExpiredInsertTokens(ctx context.Context) (int64, error) {
	return s.storage.DiskToken().SweepExpiredInsertTokens(ctx, time.Now().UTC())
}

// refresh renews the access token with the stored refresh token.
// Single attempt. Any failure leaves the stored state untouched so a
// transient network error never destroys a still valid refresh token
func (s *Service) refresh(ctx context.Context, record *Record) bool {
	refreshToken, err := record.RefreshToken()
	if err != nil {
		return false
	}

	providerToken, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("Token refresh failed", "error", err)
		return false
	}

	// Stale pending attempt makes no sense once the access token works again
	record.ClearInsertToken()

	if err := record.SetAccessToken(providerToken.AccessToken, providerToken.TokenType, providerToken.ExpiresAt); err != nil {
		s.logger.Error("Failed to store refreshed access token", "error", err)
		return false
	}

	// Providers may rotate the refresh token, keep the old one otherwise
	if providerToken.RefreshToken != "" {
		if err := record.SetRefreshToken(providerToken.RefreshToken); err != nil {
			s.logger.Error("Failed to store rotated refresh token", "error", err)
			return false
		}
	}

	if _, err := s.storage.DiskToken().Update(ctx, record.Model()); err != nil {
		s.logger.Error("Failed to save refreshed tokens", "error", err)
		return false
	}

	return true
}

func (s *Service) getOrCreateUser(ctx context.Context, req StartRequest) (models.User, error) {
	user, err := s.storage.User().GetUserByTelegramID(ctx, req.TelegramUserID)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		user, err = s.storage.User().CreateUser(ctx, req.TelegramUserID, req.IsBot)
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			// Lost a race with a concurrent command for the same user
			user, err = s.storage.User().GetUserByTelegramID(ctx, req.TelegramUserID)
		}
		if err != nil {
			return user, err
		}
	default:
		return user, err
	}

	_, err = s.storage.Chat().SaveChat(ctx, models.Chat{
		UserID:     user.ID,
		TelegramID: req.ChatTelegramID,
		Type:       req.ChatType,
	})
	if err != nil {
		return user, err
	}

	return user, nil
}

func (s *Service) getOrCreateRecord(ctx context.Context, userID uuid.UUID) (Record, error) {
	tokenModel, err := s.storage.DiskToken().GetByUserID(ctx, userID)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrTokenRecordNotFound):
		tokenModel, err = s.storage.DiskToken().Create(ctx, userID)
		if errors.Is(err, apperrors.ErrTokenRecordExists) {
			tokenModel, err = s.storage.DiskToken().GetByUserID(ctx, userID)
		}
		if err != nil {
			return Record{}, err
		}
	default:
		return Record{}, err
	}

	return NewRecord(tokenModel, s.cipher), nil
}
