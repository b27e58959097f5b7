package intent

import (
	"sync"
)

// Intent is the free-text reply a chat is expected to send next
type Intent int

const (
	AwaitingName Intent = iota + 1
	AwaitingQuestion
)

// String returns the intent name for logging
func (i Intent) String() string {
	switch i {
	case AwaitingName:
		return "awaiting_name"
	case AwaitingQuestion:
		return "awaiting_question"
	default:
		return "none"
	}
}

// Tracker holds at most one pending intent per chat. It lives only as long as the process.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]Intent
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]Intent)}
}

// Set replaces any pending intent for chatID
func (t *Tracker) Set(chatID string, i Intent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[chatID] = i
}

// Clear drops the pending intent for chatID
func (t *Tracker) Clear(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, chatID)
}

// Get returns the pending intent for chatID
func (t *Tracker) Get(chatID string) (Intent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.pending[chatID]
	return i, ok
}

// Len returns the number of chats mid-dialog
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
