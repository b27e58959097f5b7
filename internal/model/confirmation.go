package model

// NoHandle is recorded when the sender has no Telegram username
const NoHandle = "Без логина"

// Confirmation is an entry of the append-only confirmations log.
// Date is DD.MM.YYYY in the reference timezone.
type Confirmation struct {
	ChatID   string `json:"chat_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Date     string `json:"date"`
}
