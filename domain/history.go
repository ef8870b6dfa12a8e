package domain

import "time"

// HistoryEntry is the key-value representation of a room message.
// Entries are stored newest-first; readers are handed chronological order.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Room        string    `json:"room"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType"`
	SentAt      time.Time `json:"sentAt"`

	// IsOwn is computed per recipient at replay time and never persisted.
	IsOwn bool `json:"isOwn,omitempty"`
}

func (h HistoryEntry) RoomID() RoomID {
	return RoomID(h.Room)
}
