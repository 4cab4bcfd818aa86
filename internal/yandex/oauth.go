package yandex

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	yandexoauth "golang.org/x/oauth2/yandex"

	"github.com/pkazanov/diskbot/internal/apperrors"
)

const defaultExchangeTimeout = 10 * time.Second

// Token is the provider response to a code exchange or a refresh grant
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresAt    time.Time
}

type OAuthConfig struct {
	// OAuth application credentials registered with Yandex
	AppID     string
	AppSecret string

	// Endpoint overrides, used in tests. Production values come from
	// golang.org/x/oauth2/yandex
	AuthURL  string
	TokenURL string

	// Single token endpoint call budget
	// If not set than default is used
	Timeout time.Duration
}

// OAuth talks to the Yandex OAuth endpoints. Calls are synchronous and
// single-attempt: any transport failure is a provider exchange error,
// retry policy belongs to the caller
type OAuth struct {
	cfg     *oauth2.Config
	timeout time.Duration
}

func NewOAuth(cfg OAuthConfig) *OAuth {
	endpoint := yandexoauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultExchangeTimeout
	}

	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			Endpoint:     endpoint,
		},
		timeout: timeout,
	}
}

// AuthorizationURL builds the provider authorize URL carrying the signed
// state: response_type=code&client_id=<app id>&state=<state>
func (o *OAuth) AuthorizationURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens (grant_type=authorization_code)
func (o *OAuth) Exchange(ctx context.Context, code string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	token, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return Token{}, fmt.Errorf("%v: %w", err, apperrors.ErrProviderExchange)
	}

	return newToken(token), nil
}

// Refresh trades a refresh token for a fresh token set (grant_type=refresh_token)
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// TokenSource with an expired token forces the refresh grant immediately
	source := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return Token{}, fmt.Errorf("%v: %w", err, apperrors.ErrProviderExchange)
	}

	return newToken(token), nil
}

func newToken(t *oauth2.Token) Token {
	return Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.Type(),
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.Expiry.UTC(),
	}
}
