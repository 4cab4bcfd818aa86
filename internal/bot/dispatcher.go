package bot

import (
	"context"
	"sync"
	"time"

	"github.com/pkazanov/diskbot/internal/telegram"
)

// HandlerFunc consumes one follow-up message from a chat
type HandlerFunc func(ctx context.Context, msg *telegram.Message) error

// Dispatcher registers one-shot handlers that intercept the next
// message a user sends in a chat. Commands use it to ask a follow-up
// question ("which path?") without blocking the webhook
type Dispatcher interface {
	// SetDisposableHandler arms fn for the user in the chat.
	// A second registration replaces the first
	SetDisposableHandler(userID int64, chatID int64, fn HandlerFunc, ttl time.Duration)

	// PopDisposableHandler takes the armed handler, if any. The handler
	// fires at most once, expired registrations are never returned
	PopDisposableHandler(userID int64, chatID int64) (HandlerFunc, bool)
}

type dispatcherKey struct {
	userID int64
	chatID int64
}

type disposableEntry struct {
	fn        HandlerFunc
	expiresAt time.Time
}

// MemoryDispatcher keeps registrations in a process-local map.
// Expired entries are dropped lazily on access and by Sweep
type MemoryDispatcher struct {
	mu       sync.Mutex
	handlers map[dispatcherKey]disposableEntry
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{
		handlers: make(map[dispatcherKey]disposableEntry),
	}
}

func (d *MemoryDispatcher) SetDisposableHandler(userID int64, chatID int64, fn HandlerFunc, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[dispatcherKey{userID: userID, chatID: chatID}] = disposableEntry{
		fn:        fn,
		expiresAt: time.Now().Add(ttl),
	}
}

func (d *MemoryDispatcher) PopDisposableHandler(userID int64, chatID int64) (HandlerFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := dispatcherKey{userID: userID, chatID: chatID}
	entry, ok := d.handlers[key]
	if !ok {
		return nil, false
	}

	delete(d.handlers, key)

	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.fn, true
}

// Sweep drops expired registrations and returns how many were dropped
func (d *MemoryDispatcher) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	swept := 0
	for key, entry := range d.handlers {
		if now.After(entry.expiresAt) {
			delete(d.handlers, key)
			swept++
		}
	}

	return swept
}
