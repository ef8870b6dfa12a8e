// Package event defines the domain events fanned out to room members.
package event

import (
	"time"

	"chat-relay/domain"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessagePosted is delivered to every member of the room, including the
// sender, whose client marks its own echo.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) RoomID() domain.RoomID {
	return domain.RoomID(m.Message.ThreadID)
}

// UserJoined is delivered to every member except the joining connection.
type UserJoined struct {
	Room     domain.RoomID
	Username string
	At       time.Time
}

func (u UserJoined) RoomID() domain.RoomID {
	return u.Room
}

// UserLeft is delivered to the members remaining after the departure.
type UserLeft struct {
	Room     domain.RoomID
	Username string
	At       time.Time
}

func (u UserLeft) RoomID() domain.RoomID {
	return u.Room
}

// HistoryReplay is delivered to a joining connection only, never broadcast.
type HistoryReplay struct {
	Room     domain.RoomID
	Messages []domain.HistoryEntry
}

func (h HistoryReplay) RoomID() domain.RoomID {
	return h.Room
}
