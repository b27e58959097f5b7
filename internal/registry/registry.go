package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/user/hours-bot-go/internal/model"
	"github.com/user/hours-bot-go/internal/store"
)

// ValidationError is returned when a submitted name is not "first last"
type ValidationError struct {
	Input string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("name %q must contain a first and a last name", e.Input)
}

// ValidateName trims raw and checks that it has at least two whitespace-separated tokens
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(strings.Fields(name)) < 2 {
		return "", &ValidationError{Input: raw}
	}
	return name, nil
}

// Registry owns the subscriber records. Every mutation is written through to the
// subscribers document before it returns; a failed write restores the previous state.
type Registry struct {
	mu   sync.Mutex
	docs *store.Documents
	subs map[string]model.Subscriber
}

// Open loads the subscribers document
func Open(ctx context.Context, docs *store.Documents) (*Registry, error) {
	subs, err := docs.LoadSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers: %w", err)
	}
	return &Registry{docs: docs, subs: subs}, nil
}

// Get returns the subscriber for chatID
func (r *Registry) Get(chatID string) (model.Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[chatID]
	if !ok {
		return model.Subscriber{}, false
	}
	return sub.Clone(), true
}

// UpsertName creates the subscriber or renames an existing one, keeping its last confirmation
func (r *Registry) UpsertName(ctx context.Context, chatID string, raw string) (model.Subscriber, error) {
	name, err := ValidateName(raw)
	if err != nil {
		return model.Subscriber{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.subs[chatID]
	sub := prev.Clone()
	sub.ChatID = chatID
	sub.Name = name
	r.subs[chatID] = sub

	if err := r.persist(ctx); err != nil {
		if existed {
			r.subs[chatID] = prev
		} else {
			delete(r.subs, chatID)
		}
		return model.Subscriber{}, err
	}
	return sub.Clone(), nil
}

// Remove deletes the subscriber. It reports whether a record existed.
func (r *Registry) Remove(ctx context.Context, chatID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.subs[chatID]
	if !existed {
		return false, nil
	}
	delete(r.subs, chatID)

	if err := r.persist(ctx); err != nil {
		r.subs[chatID] = prev
		return false, err
	}
	return true, nil
}

// MarkConfirmed records monthKey as the subscriber's latest confirmed month.
// Chats that are not subscribed are ignored.
func (r *Registry) MarkConfirmed(ctx context.Context, chatID string, monthKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.subs[chatID]
	if !existed {
		return nil
	}
	sub := prev.Clone()
	key := monthKey
	sub.LastConfirm = &key
	r.subs[chatID] = sub

	if err := r.persist(ctx); err != nil {
		r.subs[chatID] = prev
		return err
	}
	return nil
}

// ListAll returns a snapshot of all subscribers
func (r *Registry) ListAll() []model.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub.Clone())
	}
	return out
}

// Len returns the number of subscribers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// ConfirmedCount returns how many subscribers confirmed for monthKey
func (r *Registry) ConfirmedCount(monthKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sub := range r.subs {
		if sub.ConfirmedIn(monthKey) {
			n++
		}
	}
	return n
}

// persist must be called with mu held
func (r *Registry) persist(ctx context.Context) error {
	return r.docs.SaveSubscribers(ctx, r.subs)
}
