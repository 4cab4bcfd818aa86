package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/service/oauth"
	"github.com/pkazanov/diskbot/internal/telegram"
	"github.com/pkazanov/diskbot/internal/yandex"
)

// Supported commands
const (
	CmdAuthorize = "/yandex_disk_authorization"
	CmdRevoke    = "/yandex_disk_revoke"
	CmdPublish   = "/publish"
)

const defaultPathRequestTTL = 10 * time.Minute

// TokenService is the custody subsystem surface the bot needs
type TokenService interface {
	StartAuthorization(ctx context.Context, req oauth.StartRequest) error
	Revoke(ctx context.Context, telegramUserID int64) error
	AccessToken(ctx context.Context, telegramUserID int64) (string, error)
}

// Disk publishes resources on the user's behalf
type Disk interface {
	Publish(ctx context.Context, accessToken string, path string) error
	GetElementInfo(ctx context.Context, accessToken string, path string) (yandex.ElementInfo, error)
}

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts telegram.SendMessageOptions) error
}

type Config struct {
	// How long a "send me the path" question stays armed
	// If not set than default is used
	PathRequestTTL time.Duration
}

// Bot routes incoming updates to command handlers
type Bot struct {
	pathRequestTTL time.Duration

	tokens     TokenService
	disk       Disk
	tg         Messenger
	dispatcher Dispatcher
	logger     logger.Logger
}

func New(cfg Config, tokens TokenService, disk Disk, tg Messenger, dispatcher Dispatcher, l logger.Logger) (*Bot, error) {
	if tokens == nil || disk == nil || tg == nil || dispatcher == nil {
		return nil, errors.New("tokens, disk, messenger and dispatcher must not be nil")
	}

	if cfg.PathRequestTTL == 0 {
		cfg.PathRequestTTL = defaultPathRequestTTL
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Bot{
		pathRequestTTL: cfg.PathRequestTTL,
		tokens:         tokens,
		disk:           disk,
		tg:             tg,
		dispatcher:     dispatcher,
		logger:         l,
	}, nil
}

// HandleUpdate processes one webhook update. Errors are handled here:
// users get a chat message, operators get a log line, the webhook itself
// never fails because of them
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	command, arg := msg.Command()

	var err error
	switch command {
	case CmdAuthorize:
		err = b.handleAuthorize(ctx, msg)
	case CmdRevoke:
		err = b.handleRevoke(ctx, msg)
	case CmdPublish:
		err = b.handlePublish(ctx, msg, arg)
	case "":
		err = b.handlePlainMessage(ctx, msg)
	default:
		err = b.tg.SendMessage(ctx, msg.Chat.ID, msgUnknownCommand, telegram.SendMessageOptions{})
	}

	if err != nil {
		b.logger.Error("Failed to handle update",
			"update_id", update.UpdateID,
			"command", command,
			"error", err,
		)
		b.cancelCommand(ctx, msg.Chat.ID)
	}
}

func (b *Bot) handleAuthorize(ctx context.Context, msg *telegram.Message) error {
	return b.tokens.StartAuthorization(ctx, oauth.StartRequest{
		TelegramUserID: msg.From.ID,
		IsBot:          msg.From.IsBot,
		ChatTelegramID: msg.Chat.ID,
		ChatType:       msg.Chat.Type,
	})
}

func (b *Bot) handleRevoke(ctx context.Context, msg *telegram.Message) error {
	if err := b.tokens.Revoke(ctx, msg.From.ID); err != nil {
		return err
	}

	return b.tg.SendMessage(ctx, msg.Chat.ID, msgRevoked, telegram.SendMessageOptions{})
}

// handlePublish publishes the disk resource named by the command
// argument. Without an argument the next message from the same user in
// the same chat is taken as the path
func (b *Bot) handlePublish(ctx context.Context, msg *telegram.Message, path string) error {
	if path == "" {
		b.dispatcher.SetDisposableHandler(msg.From.ID, msg.Chat.ID, func(ctx context.Context, followUp *telegram.Message) error {
			return b.publish(ctx, followUp, strings.TrimSpace(followUp.Text))
		}, b.pathRequestTTL)

		return b.tg.SendMessage(ctx, msg.Chat.ID, msgRequestPath, telegram.SendMessageOptions{})
	}

	return b.publish(ctx, msg, path)
}

func (b *Bot) handlePlainMessage(ctx context.Context, msg *telegram.Message) error {
	fn, ok := b.dispatcher.PopDisposableHandler(msg.From.ID, msg.Chat.ID)
	if !ok {
		// Nothing expects this message
		return nil
	}

	return fn(ctx, msg)
}

func (b *Bot) publish(ctx context.Context, msg *telegram.Message, path string) error {
	if path == "" {
		return b.tg.SendMessage(ctx, msg.Chat.ID, msgRequestPath, telegram.SendMessageOptions{})
	}

	accessToken, err := b.tokens.AccessToken(ctx, msg.From.ID)
	if errors.Is(err, apperrors.ErrTokenAbsent) || errors.Is(err, apperrors.ErrTokenExpired) {
		return b.tg.SendMessage(ctx, msg.Chat.ID, msgNeedAuthorization, telegram.SendMessageOptions{})
	}
	if err != nil {
		return fmt.Errorf("error while getting access token. Err: %w", err)
	}

	if err := b.disk.Publish(ctx, accessToken, path); err != nil {
		return b.reportDiskError(ctx, msg.Chat.ID, err)
	}

	info, err := b.disk.GetElementInfo(ctx, accessToken, path)
	if err != nil {
		return b.reportDiskError(ctx, msg.Chat.ID, err)
	}

	return b.tg.SendMessage(ctx, msg.Chat.ID, elementInfoText(info), telegram.SendMessageOptions{
		ParseMode:             telegram.ParseModeHTML,
		DisableWebPagePreview: true,
	})
}

// reportDiskError tells the user what the Disk API said. API-reported
// failures (bad path and so on) are expected and end here, anything
// else propagates to HandleUpdate for logging
func (b *Bot) reportDiskError(ctx context.Context, chatID int64, err error) error {
	var diskErr *yandex.DiskError
	if errors.As(err, &diskErr) {
		text := fmt.Sprintf("Yandex.Disk reported an error: %s", html.EscapeString(diskErr.Message))
		return b.tg.SendMessage(ctx, chatID, text, telegram.SendMessageOptions{})
	}

	return err
}

func (b *Bot) cancelCommand(ctx context.Context, chatID int64) {
	if err := b.tg.SendMessage(ctx, chatID, msgCancelled, telegram.SendMessageOptions{}); err != nil {
		b.logger.Error("Failed to send cancel message", "chat_id", chatID, "error", err)
	}
}

func elementInfoText(info yandex.ElementInfo) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(info.Name))
	fmt.Fprintf(&sb, "Type: %s\n", html.EscapeString(info.Type))
	if info.Size > 0 {
		fmt.Fprintf(&sb, "Size: %d bytes\n", info.Size)
	}
	if info.PublicURL != "" {
		fmt.Fprintf(&sb, "Public link: %s\n", html.EscapeString(info.PublicURL))
	}

	return strings.TrimRight(sb.String(), "\n")
}
