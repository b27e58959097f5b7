package model

// Menu is the keyboard mode requested alongside an outbound message
type Menu int

const (
	// NoMenu removes any visible keyboard
	NoMenu Menu = iota
	// MainMenu shows the subscriber actions
	MainMenu
	// StartOnlyMenu offers only /start
	StartOnlyMenu
)

// String returns the menu name for logging
func (m Menu) String() string {
	switch m {
	case MainMenu:
		return "main"
	case StartOnlyMenu:
		return "start_only"
	default:
		return "none"
	}
}

// Button is a reply-keyboard action understood by the bot
type Button int

const (
	ButtonChangeName Button = iota + 1
	ButtonConfirmHours
	ButtonAskQuestion
)

// Reply keyboard labels
const (
	LabelChangeName   = "📝 Сменить имя и фамилию"
	LabelConfirmHours = "✅ Подтвердить заполнение часов"
	LabelAskQuestion  = "❓ Задать вопрос"
)

// Label returns the keyboard text for the button
func (b Button) Label() string {
	switch b {
	case ButtonChangeName:
		return LabelChangeName
	case ButtonConfirmHours:
		return LabelConfirmHours
	case ButtonAskQuestion:
		return LabelAskQuestion
	default:
		return ""
	}
}

// Buttons lists the main menu actions in display order
var Buttons = []Button{ButtonChangeName, ButtonConfirmHours, ButtonAskQuestion}
