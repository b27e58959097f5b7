package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/user/hours-bot-go/internal/calendar"
	"github.com/user/hours-bot-go/internal/intent"
	"github.com/user/hours-bot-go/internal/journal"
	"github.com/user/hours-bot-go/internal/model"
	"github.com/user/hours-bot-go/internal/push"
	"github.com/user/hours-bot-go/internal/registry"
	"github.com/user/hours-bot-go/internal/server"
)

// Bot commands
const (
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandStatus = "status"
)

// Handler dispatches inbound chat messages
type Handler struct {
	registry    *registry.Registry
	tracker     *intent.Tracker
	recorder    *journal.Recorder
	journal     *journal.Journal
	pushService *push.Service
	loc         *time.Location
	now         func() time.Time
	startTime   time.Time
}

// NewHandler creates a new message handler
func NewHandler(
	reg *registry.Registry,
	tracker *intent.Tracker,
	recorder *journal.Recorder,
	j *journal.Journal,
	pushService *push.Service,
	loc *time.Location,
) *Handler {
	return &Handler{
		registry:    reg,
		tracker:     tracker,
		recorder:    recorder,
		journal:     j,
		pushService: pushService,
		loc:         loc,
		now:         time.Now,
		startTime:   time.Now(),
	}
}

// SetClock replaces the time source
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// HandleUpdate processes an incoming Telegram update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	handle := ""
	if msg.From != nil {
		handle = msg.From.UserName
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, chatID, msg.Command())
		return
	}

	if button, ok := ParseButton(msg.Text); ok {
		h.OnButton(ctx, chatID, handle, button)
		return
	}

	h.OnText(ctx, chatID, msg.Text)
}

// handleCommand routes commands to their respective handlers
func (h *Handler) handleCommand(ctx context.Context, chatID string, command string) {
	log.Info().
		Str("chatID", chatID).
		Str("command", command).
		Msg("Received command")

	switch command {
	case CommandStart:
		h.OnStart(ctx, chatID)
	case CommandStop:
		h.OnStop(ctx, chatID)
	case CommandStatus:
		if !h.pushService.IsOverseer(chatID) {
			h.pushService.Reply(chatID, push.UnknownCommandText, model.NoMenu)
			return
		}
		h.OnStatus(chatID)
	default:
		h.pushService.Reply(chatID, push.UnknownCommandText, model.NoMenu)
	}
}

// ParseButton maps reply keyboard text to the button it came from.
// Only exact labels match.
func ParseButton(text string) (model.Button, bool) {
	for _, b := range model.Buttons {
		if text == b.Label() {
			return b, true
		}
	}
	return 0, false
}

// OnStart greets a returning subscriber or asks a new chat for its name
func (h *Handler) OnStart(ctx context.Context, chatID string) {
	if sub, ok := h.registry.Get(chatID); ok {
		h.tracker.Clear(chatID)
		h.pushService.Reply(chatID, push.WelcomeBackText(sub.Name), model.MainMenu)
		return
	}

	h.tracker.Set(chatID, intent.AwaitingName)
	h.pushService.Reply(chatID, push.AskNameText, model.NoMenu)
}

// OnStop unsubscribes the chat
func (h *Handler) OnStop(ctx context.Context, chatID string) {
	h.tracker.Clear(chatID)

	removed, err := h.registry.Remove(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to remove subscriber")
		server.RecordError("persistence")
		h.pushService.Reply(chatID, push.TryAgainText, model.NoMenu)
		return
	}

	if !removed {
		h.pushService.Reply(chatID, push.NotSubscribedText, model.StartOnlyMenu)
		return
	}

	server.SetSubscribers(h.registry.Len())
	log.Info().Str("chatID", chatID).Msg("Subscriber removed")
	h.pushService.Reply(chatID, push.UnsubscribedText, model.StartOnlyMenu)
}

// OnButton handles a main menu action
func (h *Handler) OnButton(ctx context.Context, chatID string, handle string, button model.Button) {
	switch button {
	case model.ButtonChangeName:
		h.tracker.Set(chatID, intent.AwaitingName)
		h.pushService.Reply(chatID, push.ChangeNameText, model.NoMenu)
	case model.ButtonAskQuestion:
		h.tracker.Set(chatID, intent.AwaitingQuestion)
		h.pushService.Reply(chatID, push.AskQuestionText, model.NoMenu)
	case model.ButtonConfirmHours:
		h.tracker.Clear(chatID)
		h.confirmHours(ctx, chatID, handle)
	}
}

func (h *Handler) confirmHours(ctx context.Context, chatID string, handle string) {
	if handle == "" {
		handle = model.NoHandle
	}

	c, err := h.recorder.RecordConfirmation(ctx, chatID, h.displayName(chatID), handle, h.now())
	if c.Date != "" {
		server.RecordConfirmation()
	}
	if err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to record confirmation")
		server.RecordError("persistence")
		h.pushService.Reply(chatID, push.TryAgainText, model.MainMenu)
		return
	}

	h.pushService.Reply(chatID, push.ConfirmedText, model.MainMenu)
}

// OnText handles free text according to the chat's pending intent
func (h *Handler) OnText(ctx context.Context, chatID string, text string) {
	pending, ok := h.tracker.Get(chatID)
	if !ok {
		menu := model.StartOnlyMenu
		if _, subscribed := h.registry.Get(chatID); subscribed {
			menu = model.MainMenu
		}
		h.pushService.Reply(chatID, push.UseMenuText, menu)
		return
	}

	switch pending {
	case intent.AwaitingName:
		h.receiveName(ctx, chatID, text)
	case intent.AwaitingQuestion:
		h.receiveQuestion(ctx, chatID, text)
	}
}

func (h *Handler) receiveName(ctx context.Context, chatID string, text string) {
	sub, err := h.registry.UpsertName(ctx, chatID, text)
	if err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			h.pushService.Reply(chatID, push.RetryNameText, model.NoMenu)
			return
		}
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to save subscriber name")
		server.RecordError("persistence")
		h.pushService.Reply(chatID, push.TryAgainText, model.NoMenu)
		return
	}

	h.tracker.Clear(chatID)
	server.SetSubscribers(h.registry.Len())
	log.Info().Str("chatID", chatID).Msg("Subscriber name saved")

	h.pushService.Reply(chatID, push.NameSavedText(sub.Name), model.MainMenu)
	h.pushService.Reply(chatID, push.ReminderText, model.MainMenu)
}

func (h *Handler) receiveQuestion(ctx context.Context, chatID string, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		h.pushService.Reply(chatID, push.AskQuestionText, model.NoMenu)
		return
	}

	if _, err := h.recorder.SubmitQuestion(ctx, chatID, h.displayName(chatID), text); err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("Failed to record question")
		server.RecordError("persistence")
		h.pushService.Reply(chatID, push.TryAgainText, model.NoMenu)
		return
	}

	h.tracker.Clear(chatID)
	server.RecordQuestion()
	h.pushService.Reply(chatID, push.QuestionSentText, model.MainMenu)
}

// OnStatus sends the overseer a summary of the bot state
func (h *Handler) OnStatus(chatID string) {
	monthKey := calendar.MonthKey(h.now(), h.loc)
	st := push.Status{
		MonthKey:      monthKey,
		Subscribers:   h.registry.Len(),
		Confirmed:     h.registry.ConfirmedCount(monthKey),
		Confirmations: len(h.journal.Confirmations()),
		Questions:     len(h.journal.Questions()),
		Uptime:        time.Since(h.startTime),
	}
	h.pushService.Reply(chatID, push.FormatStatus(st), model.NoMenu)
}

// displayName returns the registered name or the unknown-name placeholder
func (h *Handler) displayName(chatID string) string {
	if sub, ok := h.registry.Get(chatID); ok {
		return sub.Name
	}
	return model.UnknownName
}
