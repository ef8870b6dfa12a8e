package domain

type Command interface {
	RoomID() RoomID
}

type PostMessageCommand struct {
	ThreadID    string
	SenderID    string
	Content     string
	MessageType string
}

func (p PostMessageCommand) RoomID() RoomID {
	return RoomID(p.ThreadID)
}
