// Package domain contains core concepts of the relay.
// Entities here carry no runtime, network, or storage logic beyond
// the mapping tags the directory store needs.
package domain

type RoomID string

func (r RoomID) String() string {
	return string(r)
}

// Departure reports the observable effects of removing one connection from
// a room.
type Departure struct {
	Room RoomID

	// RoomEmpty is set when no local connection remains in the room.
	RoomEmpty bool

	// LastOfUser is set when no other connection of the same user remains
	// in the room, which is when the departure is worth announcing.
	LastOfUser bool
}
