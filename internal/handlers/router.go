package handlers

import (
	"context"
	"net/http"

	"github.com/pkazanov/diskbot/internal/handlers/middleware"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/telegram"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	updates updateHandler,
	authorizations authCompleter,
	logger logger.Logger,
) http.Handler {
	root := http.NewServeMux()

	root.Handle("POST /telegram/webhook", handleWebhook(updates, logger))
	root.Handle("GET /oauth/callback", handleOAuthCallback(authorizations, logger))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type updateHandler interface {
	// Process one Telegram update. Command failures are handled inside
	// (user message + log), never returned to the transport
	HandleUpdate(ctx context.Context, update telegram.Update)
}

type authCompleter interface {
	// Finish the OAuth round-trip with the provider callback values
	// Has to return apperrors.ErrInvalidState, apperrors.ErrUnknownUser or
	// apperrors.ErrStaleState when the callback cannot be tied to a
	// pending attempt, apperrors.ErrProviderExchange when the code
	// exchange fails
	CompleteAuthorization(ctx context.Context, code string, state string) error
}
