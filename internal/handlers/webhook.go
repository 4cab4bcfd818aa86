package handlers

import (
	"net/http"

	"github.com/pkazanov/diskbot/internal/handlers/render"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/telegram"
)

// handleWebhook receives Telegram update objects.
// A decoded update always gets 200: command failures must not make
// Telegram re-deliver the same update over and over
func handleWebhook(updates updateHandler, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		update, err := render.BindAndValidate[telegram.Update](w, r)
		if err != nil {
			l.Warn("Invalid webhook payload", "error", err)
			return
		}

		updates.HandleUpdate(r.Context(), update)

		w.WriteHeader(http.StatusOK)
	})
}
