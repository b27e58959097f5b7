package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/user/hours-bot-go/internal/model"
)

// Client wraps the Telegram Bot API for sending messages
type Client struct {
	api *tgbotapi.BotAPI
}

// NewClient creates a new Telegram client with the given bot token
func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	return &Client{api: api}, nil
}

// Username returns the bot's own username
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// GetUpdates returns a channel for receiving updates from Telegram
func (c *Client) GetUpdates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u)
}

// StopReceivingUpdates stops the update channel
func (c *Client) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

// SendText sends a plain text message with the requested keyboard
func (c *Client) SendText(chatID string, text string, menu model.Menu) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ReplyMarkup = Keyboard(menu)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Keyboard renders a menu as Telegram reply markup
func Keyboard(menu model.Menu) any {
	switch menu {
	case model.MainMenu:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(model.Buttons)+1)
		for _, b := range model.Buttons {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(b.Label())))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("/"+CommandStop)))
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	case model.StartOnlyMenu:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("/" + CommandStart)),
		)
		kb.ResizeKeyboard = true
		return kb
	default:
		return tgbotapi.NewRemoveKeyboard(true)
	}
}
