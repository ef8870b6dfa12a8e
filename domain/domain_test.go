package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomID_Mirrors_Thread_And_Message(t *testing.T) {
	req := require.New(t)

	thread := Thread{ID: "t1"}
	message := Message{ID: "m1", ThreadID: "t1"}
	entry := HistoryEntry{ID: "m1", Room: "t1"}

	// A thread, its messages and its history entries all resolve to the
	// same room.
	req.Equal(RoomID("t1"), thread.RoomID())
	req.Equal(thread.RoomID(), message.RoomID())
	req.Equal(thread.RoomID(), entry.RoomID())
	req.Equal("t1", thread.RoomID().String())
}
