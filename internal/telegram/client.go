package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkazanov/diskbot/internal/logger"
)

const defaultAPIAddr = "https://api.telegram.org"

// ParseModeHTML formats a message as HTML
// https://core.telegram.org/bots/api#formatting-options
const ParseModeHTML = "HTML"

// SendMessageOptions tune a single sendMessage call
type SendMessageOptions struct {
	ParseMode             string
	DisableWebPagePreview bool
}

// Client is a thin Bot API client, only the calls the bot needs
type Client struct {
	APIAddr string

	token  string
	client *http.Client
	logger logger.Logger
}

func NewClient(addr string, token string, l logger.Logger) *Client {
	if addr == "" {
		addr = defaultAPIAddr
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Client{
		APIAddr: addr,
		token:   token,
		client:  &http.Client{},
		logger:  l,
	}
}

// SendMessage delivers text to the chat
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts SendMessageOptions) error {
	payload := struct {
		ChatID                int64  `json:"chat_id"`
		Text                  string `json:"text"`
		ParseMode             string `json:"parse_mode,omitempty"`
		DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	}{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             opts.ParseMode,
		DisableWebPagePreview: opts.DisableWebPagePreview,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reqURL := c.APIAddr + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		c.logger.Warn("Telegram rejected message", "chat_id", chatID, "status", resp.StatusCode, "description", result.Description)
		return fmt.Errorf("telegram api error: %s", result.Description)
	}

	return nil
}
