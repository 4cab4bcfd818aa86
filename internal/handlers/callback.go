package handlers

import (
	"errors"
	"net/http"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/logger"
)

const callbackFailedPage = `<!DOCTYPE html>
<html>
<head><title>Authorization failed</title></head>
<body>
<p>Authorization failed. Request a new link with the bot command and try again.</p>
</body>
</html>`

const callbackOKPage = `<!DOCTYPE html>
<html>
<head><title>Authorized</title></head>
<body>
<p>Yandex.Disk access is authorized. You can close this page and return to the chat.</p>
</body>
</html>`

// handleOAuthCallback finishes the provider redirect. Every rejection
// renders the same page with the same status so the response does not
// reveal whether a state was valid, stale or entirely forged
func handleOAuthCallback(authorizations authCompleter, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		state := query.Get("state")

		if code == "" || state == "" {
			l.Warn("Callback with missing parameters", "has_code", code != "", "has_state", state != "")
			renderPage(w, callbackFailedPage, http.StatusBadRequest)
			return
		}

		err := authorizations.CompleteAuthorization(r.Context(), code, state)
		switch {
		case err == nil:
			renderPage(w, callbackOKPage, http.StatusOK)
		case errors.Is(err, apperrors.ErrInvalidState),
			errors.Is(err, apperrors.ErrUnknownUser),
			errors.Is(err, apperrors.ErrStaleState):
			l.Warn("Callback rejected", "error", err)
			renderPage(w, callbackFailedPage, http.StatusBadRequest)
		default:
			l.Error("Callback processing failed", "error", err)
			renderPage(w, callbackFailedPage, http.StatusBadRequest)
		}
	})
}

func renderPage(w http.ResponseWriter, page string, code int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(page))
}
