package push

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/hours-bot-go/internal/model"
)

// Chat copy
const (
	ReminderText       = "⏰ Не забудь заполнить часы!"
	AskNameText        = "Привет 👋 Введи, пожалуйста, своё Имя и Фамилию:"
	RetryNameText      = "Пожалуйста, введи Имя и Фамилию через пробел ✍️"
	ChangeNameText     = "Введи новые Имя и Фамилию ✍️"
	AskQuestionText    = "Напиши свой вопрос ✍️"
	QuestionSentText   = "Спасибо! Я передал твой вопрос администратору ✅"
	ConfirmedText      = "Отлично 👍 подтверждение принято."
	UnsubscribedText   = "Ты отписался от напоминаний ❌"
	NotSubscribedText  = "Ты ещё не был подписан."
	UseMenuText        = "Выбери действие в меню или отправь /start."
	TryAgainText       = "Не получилось сохранить, попробуй ещё раз позже 🙏"
	UnknownCommandText = "Неизвестная команда. Отправь /start."
)

// WelcomeBackText greets a returning subscriber
func WelcomeBackText(name string) string {
	return fmt.Sprintf("С возвращением, %s 👋", name)
}

// NameSavedText thanks a subscriber for registering a name
func NameSavedText(name string) string {
	return fmt.Sprintf("Спасибо, %s! Теперь у тебя есть меню ⏰", name)
}

// FormatQuestionNotice formats a relayed question for the overseer
func FormatQuestionNotice(q model.Question) string {
	return fmt.Sprintf("❓ Вопрос от %s:\n\n%s", q.Name, q.Question)
}

// FormatConfirmationNotice formats a confirmation notice for the overseer
func FormatConfirmationNotice(c model.Confirmation) string {
	return fmt.Sprintf("✅ %s подтвердил заполнение часов.", c.Name)
}

// Status is the overseer's summary of the bot state
type Status struct {
	MonthKey      string
	Subscribers   int
	Confirmed     int
	Confirmations int
	Questions     int
	Uptime        time.Duration
}

// FormatStatus renders the overseer status report
func FormatStatus(st Status) string {
	lines := []string{
		"📊 Статус бота",
		fmt.Sprintf("👥 Подписчиков: %d", st.Subscribers),
		fmt.Sprintf("✅ Подтвердили за %s: %d из %d", st.MonthKey, st.Confirmed, st.Subscribers),
		fmt.Sprintf("🗂 Подтверждений в журнале: %d", st.Confirmations),
		fmt.Sprintf("❓ Вопросов в журнале: %d", st.Questions),
		fmt.Sprintf("⏱ Аптайм: %s", formatDuration(st.Uptime)),
	}
	return strings.Join(lines, "\n")
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
