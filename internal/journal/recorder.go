package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/calendar"
	"github.com/user/hours-bot-go/internal/model"
	"github.com/user/hours-bot-go/internal/push"
	"github.com/user/hours-bot-go/internal/registry"
)

// Notifier relays notices to the overseer without reporting failures
type Notifier interface {
	NotifyOverseer(ctx context.Context, text string)
}

// Recorder records confirmations and questions and relays them to the overseer
type Recorder struct {
	journal  *Journal
	registry *registry.Registry
	notifier Notifier
	loc      *time.Location
}

// NewRecorder creates a recorder that stamps dates in loc
func NewRecorder(j *Journal, reg *registry.Registry, notifier Notifier, loc *time.Location) *Recorder {
	return &Recorder{
		journal:  j,
		registry: reg,
		notifier: notifier,
		loc:      loc,
	}
}

// RecordConfirmation appends a confirmation dated now and marks the month as confirmed.
// The log entry and the registry marker are separate writes. When the marker write fails
// the record stays in the log and is returned together with the error.
func (r *Recorder) RecordConfirmation(ctx context.Context, chatID, displayName, handle string, now time.Time) (model.Confirmation, error) {
	c := model.Confirmation{
		ChatID:   chatID,
		Name:     displayName,
		Username: handle,
		Date:     calendar.DateString(now, r.loc),
	}
	monthKey := calendar.MonthKey(now, r.loc)

	if err := r.journal.AppendConfirmation(ctx, c); err != nil {
		return model.Confirmation{}, fmt.Errorf("failed to append confirmation: %w", err)
	}

	markErr := r.registry.MarkConfirmed(ctx, chatID, monthKey)
	if markErr != nil {
		markErr = fmt.Errorf("failed to mark %s confirmed: %w", monthKey, markErr)
	} else {
		log.Info().
			Str("chatID", chatID).
			Str("month", monthKey).
			Msg("Recorded confirmation")
	}

	r.notifier.NotifyOverseer(ctx, push.FormatConfirmationNotice(c))
	return c, markErr
}

// SubmitQuestion appends a question and relays it to the overseer
func (r *Recorder) SubmitQuestion(ctx context.Context, chatID, displayName, text string) (model.Question, error) {
	q := model.Question{
		ChatID:   chatID,
		Name:     displayName,
		Question: text,
	}

	if err := r.journal.AppendQuestion(ctx, q); err != nil {
		return model.Question{}, fmt.Errorf("failed to append question: %w", err)
	}

	log.Info().Str("chatID", chatID).Msg("Recorded question")

	r.notifier.NotifyOverseer(ctx, push.FormatQuestionNotice(q))
	return q, nil
}
