package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/hours-bot-go/internal/intent"
	"github.com/user/hours-bot-go/internal/journal"
	"github.com/user/hours-bot-go/internal/model"
	"github.com/user/hours-bot-go/internal/push"
	"github.com/user/hours-bot-go/internal/registry"
	"github.com/user/hours-bot-go/internal/store"
)

const overseerID = "900"

type sentMessage struct {
	chatID string
	text   string
	menu   model.Menu
}

// MockMessenger records every outbound message
type MockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *MockMessenger) SendText(chatID string, text string, menu model.Menu) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, menu: menu})
	return nil
}

// To returns the messages sent to chatID
func (m *MockMessenger) To(chatID string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, s := range m.sent {
		if s.chatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *MockMessenger) Last(chatID string) sentMessage {
	msgs := m.To(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

// refusingStore rejects writes while refuse is set
type refusingStore struct {
	*store.MemoryStore
	mu     sync.Mutex
	refuse bool
}

func (s *refusingStore) setRefuse(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = v
}

func (s *refusingStore) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	refuse := s.refuse
	s.mu.Unlock()
	if refuse {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, name, data)
}

type fixture struct {
	store     *refusingStore
	messenger *MockMessenger
	registry  *registry.Registry
	tracker   *intent.Tracker
	journal   *journal.Journal
	handler   *Handler
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Almaty")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	st := &refusingStore{MemoryStore: store.NewMemoryStore()}
	docs := store.NewDocuments(st)
	reg, err := registry.Open(ctx, docs)
	if err != nil {
		t.Fatalf("registry.Open() error = %v", err)
	}
	j, err := journal.Open(ctx, docs)
	if err != nil {
		t.Fatalf("journal.Open() error = %v", err)
	}

	m := &MockMessenger{}
	svc := push.NewService(m, overseerID, 0)
	tracker := intent.NewTracker()
	rec := journal.NewRecorder(j, reg, svc, loc)

	now := time.Date(2024, time.April, 29, 12, 0, 0, 0, loc)
	h := NewHandler(reg, tracker, rec, j, svc, loc)
	h.SetClock(func() time.Time { return now })

	return &fixture{
		store:     st,
		messenger: m,
		registry:  reg,
		tracker:   tracker,
		journal:   j,
		handler:   h,
		now:       now,
	}
}

func (f *fixture) register(t *testing.T, chatID, name string) {
	t.Helper()
	if _, err := f.registry.UpsertName(context.Background(), chatID, name); err != nil {
		t.Fatalf("UpsertName() error = %v", err)
	}
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chatID},
			From:     &tgbotapi.User{ID: chatID},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		},
	}
}

func textUpdate(chatID int64, username string, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: chatID},
			From: &tgbotapi.User{ID: chatID, UserName: username},
			Text: text,
		},
	}
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		text   string
		want   model.Button
		wantOK bool
	}{
		{model.LabelChangeName, model.ButtonChangeName, true},
		{model.LabelConfirmHours, model.ButtonConfirmHours, true},
		{model.LabelAskQuestion, model.ButtonAskQuestion, true},
		{"Ana Lee", 0, false},
		{" " + model.LabelConfirmHours, 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseButton(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseButton(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestKeyboard(t *testing.T) {
	main, ok := Keyboard(model.MainMenu).(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("MainMenu keyboard has type %T", Keyboard(model.MainMenu))
	}
	if len(main.Keyboard) != 4 || main.Keyboard[3][0].Text != "/stop" || !main.ResizeKeyboard {
		t.Errorf("MainMenu keyboard = %+v", main.Keyboard)
	}
	if main.Keyboard[1][0].Text != model.LabelConfirmHours {
		t.Errorf("second row = %q, want %q", main.Keyboard[1][0].Text, model.LabelConfirmHours)
	}

	start, ok := Keyboard(model.StartOnlyMenu).(tgbotapi.ReplyKeyboardMarkup)
	if !ok || len(start.Keyboard) != 1 || start.Keyboard[0][0].Text != "/start" {
		t.Errorf("StartOnlyMenu keyboard = %+v", Keyboard(model.StartOnlyMenu))
	}

	if _, ok := Keyboard(model.NoMenu).(tgbotapi.ReplyKeyboardRemove); !ok {
		t.Errorf("NoMenu keyboard has type %T", Keyboard(model.NoMenu))
	}
}

func TestRegistrationDialog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.HandleUpdate(ctx, commandUpdate(1, "start"))
	if got := f.messenger.Last("1"); got.text != push.AskNameText || got.menu != model.NoMenu {
		t.Errorf("start reply = %+v", got)
	}
	if i, ok := f.tracker.Get("1"); !ok || i != intent.AwaitingName {
		t.Fatalf("intent = %v, %v; want AwaitingName", i, ok)
	}

	// a single word is rejected and the chat keeps waiting for a name
	f.handler.HandleUpdate(ctx, textUpdate(1, "ana", "Ana"))
	if got := f.messenger.Last("1"); got.text != push.RetryNameText {
		t.Errorf("retry reply = %q, want %q", got.text, push.RetryNameText)
	}
	if _, ok := f.registry.Get("1"); ok {
		t.Error("subscriber created from a single-word name")
	}
	if i, ok := f.tracker.Get("1"); !ok || i != intent.AwaitingName {
		t.Errorf("intent after retry = %v, %v; want AwaitingName", i, ok)
	}

	f.handler.HandleUpdate(ctx, textUpdate(1, "ana", "  Ana Lee  "))
	sub, ok := f.registry.Get("1")
	if !ok || sub.Name != "Ana Lee" || sub.LastConfirm != nil {
		t.Fatalf("subscriber = %+v, %v", sub, ok)
	}
	if _, ok := f.tracker.Get("1"); ok {
		t.Error("intent still pending after the name was saved")
	}

	msgs := f.messenger.To("1")
	tail := msgs[len(msgs)-2:]
	if tail[0].text != push.NameSavedText("Ana Lee") || tail[0].menu != model.MainMenu {
		t.Errorf("thanks reply = %+v", tail[0])
	}
	if tail[1].text != push.ReminderText || tail[1].menu != model.MainMenu {
		t.Errorf("follow-up reminder = %+v", tail[1])
	}
}

func TestOnStart_ReturningSubscriber(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana Lee")

	f.handler.OnStart(context.Background(), "1")

	if got := f.messenger.Last("1"); got.text != push.WelcomeBackText("Ana Lee") || got.menu != model.MainMenu {
		t.Errorf("reply = %+v", got)
	}
	if _, ok := f.tracker.Get("1"); ok {
		t.Error("returning subscriber left with a pending intent")
	}
}

func TestOnStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "1", "Ana Lee")
	f.tracker.Set("1", intent.AwaitingQuestion)

	f.handler.OnStop(ctx, "1")
	if _, ok := f.registry.Get("1"); ok {
		t.Error("subscriber still registered after /stop")
	}
	if got := f.messenger.Last("1"); got.text != push.UnsubscribedText || got.menu != model.StartOnlyMenu {
		t.Errorf("reply = %+v", got)
	}
	if _, ok := f.tracker.Get("1"); ok {
		t.Error("pending intent survived /stop")
	}

	f.handler.OnStop(ctx, "1")
	if got := f.messenger.Last("1"); got.text != push.NotSubscribedText || got.menu != model.StartOnlyMenu {
		t.Errorf("second reply = %+v", got)
	}
}

func TestConfirmHours(t *testing.T) {
	f := newFixture(t)
	f.register(t, "1", "Ana Lee")

	f.handler.HandleUpdate(context.Background(), textUpdate(1, "ana", model.LabelConfirmHours))

	cs := f.journal.Confirmations()
	if len(cs) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(cs))
	}
	want := model.Confirmation{ChatID: "1", Name: "Ana Lee", Username: "ana", Date: "29.04.2024"}
	if cs[0] != want {
		t.Errorf("confirmation = %+v, want %+v", cs[0], want)
	}

	sub, _ := f.registry.Get("1")
	if sub.LastConfirm == nil || *sub.LastConfirm != "04.2024" {
		t.Errorf("last_confirm = %v, want 04.2024", sub.LastConfirm)
	}
	if got := f.messenger.Last("1"); got.text != push.ConfirmedText || got.menu != model.MainMenu {
		t.Errorf("reply = %+v", got)
	}
	if got := f.messenger.Last(overseerID); got.text != push.FormatConfirmationNotice(want) {
		t.Errorf("overseer notice = %q", got.text)
	}
}

func TestConfirmHours_NoHandleNoSubscription(t *testing.T) {
	f := newFixture(t)

	f.handler.OnButton(context.Background(), "5", "", model.ButtonConfirmHours)

	cs := f.journal.Confirmations()
	if len(cs) != 1 || cs[0].Name != model.UnknownName || cs[0].Username != model.NoHandle {
		t.Fatalf("confirmations = %+v", cs)
	}
	if _, ok := f.registry.Get("5"); ok {
		t.Error("confirmation created a subscriber")
	}
}

// Property: a question from a chat without a subscription is logged under the
// unknown-name placeholder and relayed to the overseer.
func TestProperty_QuestionFromNonSubscriber(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("non-subscriber questions use the placeholder name", prop.ForAll(
		func(text string) bool {
			f := newFixture(t)
			ctx := context.Background()

			f.handler.OnButton(ctx, "7", "", model.ButtonAskQuestion)
			f.handler.OnText(ctx, "7", text)

			qs := f.journal.Questions()
			if len(qs) != 1 {
				return false
			}
			q := qs[0]
			if q.ChatID != "7" || q.Name != model.UnknownName || q.Question != strings.TrimSpace(text) {
				return false
			}
			if _, pending := f.tracker.Get("7"); pending {
				return false
			}
			return f.messenger.Last(overseerID).text == push.FormatQuestionNotice(q)
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

func TestQuestion_UsesRegisteredName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "1", "Ana Lee")

	f.handler.HandleUpdate(ctx, textUpdate(1, "ana", model.LabelAskQuestion))
	if got := f.messenger.Last("1"); got.text != push.AskQuestionText || got.menu != model.NoMenu {
		t.Errorf("prompt = %+v", got)
	}
	f.handler.HandleUpdate(ctx, textUpdate(1, "ana", "Когда сдавать отчёт?"))

	qs := f.journal.Questions()
	if len(qs) != 1 || qs[0].Name != "Ana Lee" || qs[0].Question != "Когда сдавать отчёт?" {
		t.Fatalf("questions = %+v", qs)
	}
	if got := f.messenger.Last("1"); got.text != push.QuestionSentText || got.menu != model.MainMenu {
		t.Errorf("reply = %+v", got)
	}
}

func TestButtonOverridesPendingIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.OnStart(ctx, "1")
	f.handler.HandleUpdate(ctx, textUpdate(1, "", model.LabelAskQuestion))
	f.handler.HandleUpdate(ctx, textUpdate(1, "", "Ana Lee"))

	if _, ok := f.registry.Get("1"); ok {
		t.Error("text was treated as a name after the question button")
	}
	if qs := f.journal.Questions(); len(qs) != 1 || qs[0].Question != "Ana Lee" {
		t.Errorf("questions = %+v", qs)
	}
}

func TestOnText_NoIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.OnText(ctx, "1", "hello")
	if got := f.messenger.Last("1"); got.text != push.UseMenuText || got.menu != model.StartOnlyMenu {
		t.Errorf("reply to stranger = %+v", got)
	}

	f.register(t, "2", "Ana Lee")
	f.handler.OnText(ctx, "2", "hello")
	if got := f.messenger.Last("2"); got.text != push.UseMenuText || got.menu != model.MainMenu {
		t.Errorf("reply to subscriber = %+v", got)
	}
	if len(f.journal.Questions()) != 0 {
		t.Error("stray text recorded as a question")
	}
}

func TestNameSaveFailureKeepsIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handler.OnStart(ctx, "1")
	f.store.setRefuse(true)
	f.handler.OnText(ctx, "1", "Ana Lee")

	if got := f.messenger.Last("1"); got.text != push.TryAgainText {
		t.Errorf("reply = %q, want %q", got.text, push.TryAgainText)
	}
	if _, ok := f.registry.Get("1"); ok {
		t.Error("subscriber kept after failed write")
	}
	if i, ok := f.tracker.Get("1"); !ok || i != intent.AwaitingName {
		t.Errorf("intent = %v, %v; want AwaitingName", i, ok)
	}

	f.store.setRefuse(false)
	f.handler.OnText(ctx, "1", "Ana Lee")
	if _, ok := f.registry.Get("1"); !ok {
		t.Error("retry after recovery did not register the subscriber")
	}
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "1", "Ana Lee")
	f.register(t, "2", "Ben Roe")
	f.handler.OnButton(ctx, "1", "ana", model.ButtonConfirmHours)

	f.handler.HandleUpdate(ctx, commandUpdate(900, "status"))
	report := f.messenger.Last(overseerID).text
	for _, want := range []string{"Подписчиков: 2", "04.2024: 1 из 2", "Подтверждений в журнале: 1"} {
		if !strings.Contains(report, want) {
			t.Errorf("status report missing %q:\n%s", want, report)
		}
	}

	f.handler.HandleUpdate(ctx, commandUpdate(1, "status"))
	if got := f.messenger.Last("1"); got.text != push.UnknownCommandText {
		t.Errorf("non-overseer /status reply = %q, want %q", got.text, push.UnknownCommandText)
	}
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.handler.HandleUpdate(context.Background(), commandUpdate(1, "help"))
	if got := f.messenger.Last("1"); got.text != push.UnknownCommandText {
		t.Errorf("reply = %q, want %q", got.text, push.UnknownCommandText)
	}
}

func TestHandleUpdate_IgnoresNonMessages(t *testing.T) {
	f := newFixture(t)
	f.handler.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	if len(f.messenger.To("1")) != 0 {
		t.Error("reply sent for an update without a message")
	}
}
