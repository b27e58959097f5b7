package push

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/model"
	"golang.org/x/time/rate"
)

// Messenger defines the interface for sending chat messages
type Messenger interface {
	SendText(chatID string, text string, menu model.Menu) error
}

// Service sends reminders to subscribers and relays notices to the overseer
type Service struct {
	messenger  Messenger
	overseerID string
	limiter    *rate.Limiter // spaces consecutive reminder sends by a fixed delay
}

// NewService creates a new push service. A zero sendDelay disables spacing.
func NewService(messenger Messenger, overseerID string, sendDelay time.Duration) *Service {
	limit := rate.Inf
	if sendDelay > 0 {
		limit = rate.Every(sendDelay)
	}
	return &Service{
		messenger:  messenger,
		overseerID: overseerID,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// OverseerID returns the configured overseer chat, empty when none
func (s *Service) OverseerID() string {
	return s.overseerID
}

// IsOverseer reports whether chatID is the configured overseer
func (s *Service) IsOverseer(chatID string) bool {
	return s.overseerID != "" && chatID == s.overseerID
}

// Reply answers a chat directly. Delivery failures are logged only.
func (s *Service) Reply(chatID string, text string, menu model.Menu) {
	if err := s.messenger.SendText(chatID, text, menu); err != nil {
		log.Error().Err(err).Str("chatID", chatID).Stringer("menu", menu).Msg("Failed to send reply")
	}
}

// SendReminder waits for the send gate and delivers the monthly reminder
func (s *Service) SendReminder(ctx context.Context, chatID string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	if err := s.messenger.SendText(chatID, ReminderText, model.MainMenu); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// NotifyOverseer relays text to the overseer on a best-effort basis
func (s *Service) NotifyOverseer(ctx context.Context, text string) {
	if s.overseerID == "" {
		return
	}
	if err := s.messenger.SendText(s.overseerID, text, model.NoMenu); err != nil {
		log.Error().Err(err).Str("overseerID", s.overseerID).Msg("Failed to notify overseer")
	}
}
