package model

// Subscriber represents a chat registered for monthly hours reminders
type Subscriber struct {
	ChatID      string  `json:"-"`
	Name        string  `json:"name"`
	LastConfirm *string `json:"last_confirm"`
}

// ConfirmedIn reports whether the subscriber confirmed for the given month key
func (s Subscriber) ConfirmedIn(monthKey string) bool {
	return s.LastConfirm != nil && *s.LastConfirm == monthKey
}

// Clone returns a copy that shares no pointers with s
func (s Subscriber) Clone() Subscriber {
	if s.LastConfirm != nil {
		v := *s.LastConfirm
		s.LastConfirm = &v
	}
	return s
}
