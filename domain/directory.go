package domain

import (
	"time"

	"gorm.io/gorm"
)

// User is a directory profile. Credentials are out of scope here,
// authentication happens before the relay is reached.
type User struct {
	ID        string         `gorm:"primarykey;size:36" json:"id"`
	Email     string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"size:100" json:"name"`
	Image     string         `gorm:"size:500" json:"image,omitempty"`
	CreatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter narrows directory user lookups.
type UserFilter struct {
	ExcludeIDs []string
}

// Thread is the durable record behind a room. UpdatedAt doubles as the
// activity marker used to order thread listings.
type Thread struct {
	ID            string        `gorm:"primarykey;size:36" json:"id"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	LastMessageID *string       `gorm:"size:36" json:"lastMessageId,omitempty"`
	LastMessage   *Message      `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	Participants  []Participant `gorm:"foreignKey:ThreadID" json:"participants"`
}

func (Thread) TableName() string {
	return "threads"
}

func (t Thread) RoomID() RoomID {
	return RoomID(t.ID)
}

// Participant links a user to a thread.
type Participant struct {
	ID       uint   `gorm:"primarykey" json:"-"`
	ThreadID string `gorm:"size:36;index;not null" json:"threadId"`
	UserID   string `gorm:"size:36;index;not null" json:"userId"`
	User     *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Participant) TableName() string {
	return "thread_participants"
}

// Message is immutable once created. IDs are collision-resistant random
// identifiers, never counters, so concurrent creation cannot collide.
type Message struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	ThreadID    string    `gorm:"size:36;index;not null" json:"threadId"`
	SenderID    string    `gorm:"size:36;not null" json:"senderId"`
	Content     string    `gorm:"size:4000;not null" json:"content"`
	MessageType string    `gorm:"size:20;not null;default:text" json:"messageType"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

func (m Message) RoomID() RoomID {
	return RoomID(m.ThreadID)
}
