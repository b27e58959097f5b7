package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/user/hours-bot-go/internal/calendar"
	"github.com/user/hours-bot-go/internal/model"
)

// SchemaError reports a persisted document that does not match its record type
type SchemaError struct {
	Document string
	Reason   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document %s: %s", e.Document, e.Reason)
}

// Documents reads and writes the three typed collections on top of a Store
type Documents struct {
	store Store
}

// NewDocuments wraps a Store
func NewDocuments(s Store) *Documents {
	return &Documents{store: s}
}

// LoadSubscribers returns the subscriber mapping keyed by chat id
func (d *Documents) LoadSubscribers(ctx context.Context) (map[string]model.Subscriber, error) {
	subs := make(map[string]model.Subscriber)
	found, err := d.load(ctx, model.DocSubscribers, &subs)
	if err != nil {
		return nil, err
	}
	if !found || subs == nil {
		return make(map[string]model.Subscriber), nil
	}
	for chatID, sub := range subs {
		if strings.TrimSpace(chatID) == "" {
			return nil, &SchemaError{Document: model.DocSubscribers, Reason: "empty chat id key"}
		}
		if strings.TrimSpace(sub.Name) == "" {
			return nil, &SchemaError{Document: model.DocSubscribers, Reason: fmt.Sprintf("chat %s has an empty name", chatID)}
		}
		if sub.LastConfirm != nil && !calendar.ValidMonthKey(*sub.LastConfirm) {
			return nil, &SchemaError{Document: model.DocSubscribers, Reason: fmt.Sprintf("chat %s has malformed last_confirm %q", chatID, *sub.LastConfirm)}
		}
		sub.ChatID = chatID
		subs[chatID] = sub
	}
	return subs, nil
}

// SaveSubscribers replaces the subscriber mapping
func (d *Documents) SaveSubscribers(ctx context.Context, subs map[string]model.Subscriber) error {
	return d.save(ctx, model.DocSubscribers, subs)
}

// LoadQuestions returns the questions log in insertion order
func (d *Documents) LoadQuestions(ctx context.Context) ([]model.Question, error) {
	var qs []model.Question
	if _, err := d.load(ctx, model.DocQuestions, &qs); err != nil {
		return nil, err
	}
	for i, q := range qs {
		if strings.TrimSpace(q.ChatID) == "" {
			return nil, &SchemaError{Document: model.DocQuestions, Reason: fmt.Sprintf("entry %d has an empty chat id", i)}
		}
	}
	return qs, nil
}

// SaveQuestions replaces the questions log
func (d *Documents) SaveQuestions(ctx context.Context, qs []model.Question) error {
	if qs == nil {
		qs = []model.Question{}
	}
	return d.save(ctx, model.DocQuestions, qs)
}

// LoadConfirmations returns the confirmations log in insertion order
func (d *Documents) LoadConfirmations(ctx context.Context) ([]model.Confirmation, error) {
	var cs []model.Confirmation
	if _, err := d.load(ctx, model.DocConfirmations, &cs); err != nil {
		return nil, err
	}
	for i, c := range cs {
		if strings.TrimSpace(c.ChatID) == "" {
			return nil, &SchemaError{Document: model.DocConfirmations, Reason: fmt.Sprintf("entry %d has an empty chat id", i)}
		}
		if !calendar.ValidDate(c.Date) {
			return nil, &SchemaError{Document: model.DocConfirmations, Reason: fmt.Sprintf("entry %d has malformed date %q", i, c.Date)}
		}
	}
	return cs, nil
}

// SaveConfirmations replaces the confirmations log
func (d *Documents) SaveConfirmations(ctx context.Context, cs []model.Confirmation) error {
	if cs == nil {
		cs = []model.Confirmation{}
	}
	return d.save(ctx, model.DocConfirmations, cs)
}

// load decodes a document strictly. A document that was never written is reported as not found.
func (d *Documents) load(ctx context.Context, name string, v any) (bool, error) {
	data, err := d.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, &PersistenceError{Op: "read", Document: name, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return false, &SchemaError{Document: name, Reason: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return false, &SchemaError{Document: name, Reason: "trailing data after document"}
	}
	return true, nil
}

// save encodes indented UTF-8 JSON, keeping non-ASCII text readable
func (d *Documents) save(ctx context.Context, name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &PersistenceError{Op: "encode", Document: name, Err: err}
	}
	if err := d.store.Put(ctx, name, buf.Bytes()); err != nil {
		return &PersistenceError{Op: "write", Document: name, Err: err}
	}
	return nil
}
