package model

// UnknownName is recorded in place of a display name for chats that are not subscribed
const UnknownName = "Неизвестный"

// Question is an entry of the append-only questions log
type Question struct {
	ChatID   string `json:"chat_id"`
	Name     string `json:"name"`
	Question string `json:"question"`
}
