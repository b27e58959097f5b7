package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/hours-bot-go/internal/model"
	"github.com/user/hours-bot-go/internal/store"
)

// Journal holds the append-only questions and confirmations logs
type Journal struct {
	mu            sync.Mutex
	docs          *store.Documents
	questions     []model.Question
	confirmations []model.Confirmation
}

// Open loads both logs
func Open(ctx context.Context, docs *store.Documents) (*Journal, error) {
	qs, err := docs.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	cs, err := docs.LoadConfirmations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmations: %w", err)
	}
	return &Journal{docs: docs, questions: qs, confirmations: cs}, nil
}

// AppendQuestion persists q at the end of the questions log
func (j *Journal) AppendQuestion(ctx context.Context, q model.Question) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.questions)
	j.questions = append(j.questions, q)
	if err := j.docs.SaveQuestions(ctx, j.questions); err != nil {
		j.questions = j.questions[:n]
		return err
	}
	return nil
}

// AppendConfirmation persists c at the end of the confirmations log
func (j *Journal) AppendConfirmation(ctx context.Context, c model.Confirmation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := len(j.confirmations)
	j.confirmations = append(j.confirmations, c)
	if err := j.docs.SaveConfirmations(ctx, j.confirmations); err != nil {
		j.confirmations = j.confirmations[:n]
		return err
	}
	return nil
}

// Questions returns the questions log in insertion order
func (j *Journal) Questions() []model.Question {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.Question(nil), j.questions...)
}

// Confirmations returns the confirmations log in insertion order
func (j *Journal) Confirmations() []model.Confirmation {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.Confirmation(nil), j.confirmations...)
}
