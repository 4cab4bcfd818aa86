package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkazanov/diskbot/internal/apperrors"
	"github.com/pkazanov/diskbot/internal/logger"
	"github.com/pkazanov/diskbot/internal/telegram"
)

type fakeAuthCompleter struct {
	completeErr error
	lastCode    string
	lastState   string
	calls       int
}

func (f *fakeAuthCompleter) CompleteAuthorization(_ context.Context, code string, state string) error {
	f.calls++
	f.lastCode = code
	f.lastState = state
	return f.completeErr
}

type noopUpdateHandler struct{}

func (noopUpdateHandler) HandleUpdate(context.Context, telegram.Update) {}

func TestHandleOAuthCallback(t *testing.T) {
	t.Parallel()

	newServer := func(t *testing.T, completeErr error) (*httptest.Server, *fakeAuthCompleter) {
		t.Helper()
		auth := &fakeAuthCompleter{completeErr: completeErr}
		ts := httptest.NewServer(NewRouter(noopUpdateHandler{}, auth, logger.NewNoOpLogger()))
		t.Cleanup(ts.Close)
		return ts, auth
	}

	get := func(t *testing.T, ts *httptest.Server, query url.Values) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + "/oauth/callback?" + query.Encode())
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		return resp, string(body)
	}

	t.Run("successful callback", func(t *testing.T) {
		ts, auth := newServer(t, nil)

		resp, body := get(t, ts, url.Values{"code": {"the-code"}, "state": {"the-state"}})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, body, "return to the chat")
		assert.Equal(t, "the-code", auth.lastCode)
		assert.Equal(t, "the-state", auth.lastState)
	})

	t.Run("missing parameters rejected without service call", func(t *testing.T) {
		ts, auth := newServer(t, nil)

		for _, query := range []url.Values{
			{},
			{"code": {"the-code"}},
			{"state": {"the-state"}},
		} {
			resp, body := get(t, ts, query)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body, "Authorization failed")
		}

		assert.Zero(t, auth.calls)
	})

	t.Run("rejections are uniform", func(t *testing.T) {
		// A caller probing states must not be able to tell a forged
		// state from a stale one by the response
		var statuses []int
		var bodies []string

		for _, completeErr := range []error{
			apperrors.ErrInvalidState,
			apperrors.ErrStaleState,
			apperrors.ErrUnknownUser,
			apperrors.ErrProviderExchange,
		} {
			ts, _ := newServer(t, completeErr)
			resp, body := get(t, ts, url.Values{"code": {"c"}, "state": {"s"}})
			statuses = append(statuses, resp.StatusCode)
			bodies = append(bodies, body)
		}

		for i := 1; i < len(statuses); i++ {
			assert.Equal(t, statuses[0], statuses[i], "all rejections should share one status")
			assert.Equal(t, bodies[0], bodies[i], "all rejections should share one page")
		}
		assert.Equal(t, http.StatusBadRequest, statuses[0])
	})
}
