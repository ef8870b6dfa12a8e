//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
)

type IChatService interface {
	ThreadsForUser(ctx context.Context, userID string) ([]domain.Thread, error)
	NewUsers(ctx context.Context, userID string) ([]domain.User, error)
	CreateThread(ctx context.Context, userID string, participants []string) (*domain.Thread, error)
	SendMessage(ctx context.Context, cmd domain.PostMessageCommand, origin string) (*domain.Message, error)
	RoomHistory(ctx context.Context, room domain.RoomID) ([]domain.HistoryEntry, error)
}

// IBroadcast is the slice of the broadcaster the service needs.
type IBroadcast interface {
	Broadcast(ctx context.Context, e event.DomainEvent, origin string, includeOrigin bool)
}

type ChatService struct {
	log          *slog.Logger
	directory    contract.IDirectoryRepository
	history      contract.IHistoryRepository
	broadcaster  IBroadcast
	historyLimit int
}

func NewChatService(log *slog.Logger, directory contract.IDirectoryRepository,
	history contract.IHistoryRepository, broadcaster IBroadcast, historyLimit int) *ChatService {
	return &ChatService{
		log:          log,
		directory:    directory,
		history:      history,
		broadcaster:  broadcaster,
		historyLimit: historyLimit,
	}
}

// ThreadsForUser returns the user's threads, newest activity first, each
// with its last message and the other participants' profiles.
func (s *ChatService) ThreadsForUser(ctx context.Context, userID string) ([]domain.Thread, error) {
	if userID == "" {
		return nil, errors.ErrMissingUserID
	}
	threads, err := s.directory.FindThreadsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range threads {
		threads[i].Participants = withoutUser(threads[i].Participants, userID)
	}
	return threads, nil
}

// NewUsers returns the users the requester shares no thread with,
// excluding the requester itself.
func (s *ChatService) NewUsers(ctx context.Context, userID string) ([]domain.User, error) {
	if userID == "" {
		return nil, errors.ErrMissingUserID
	}

	// 1. Threads the user is already in.
	threadIDs, err := s.directory.ThreadIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. Everyone already chatting with the user through those threads.
	contacts, err := s.directory.UserIDsInThreads(ctx, threadIDs, userID)
	if err != nil {
		return nil, err
	}

	// 3. Everyone else, the user excluded.
	return s.directory.FindUsers(ctx, domain.UserFilter{
		ExcludeIDs: append(contacts, userID),
	})
}

// CreateThread creates a thread, links the participants, and re-reads the
// thread with profiles attached. The response excludes the requester from
// the participant list, mirroring what thread listings return.
func (s *ChatService) CreateThread(ctx context.Context, userID string, participants []string) (*domain.Thread, error) {
	if len(participants) == 0 {
		return nil, errors.ErrEmptyParticipants
	}

	thread, err := s.directory.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.directory.AddParticipants(ctx, thread.ID, participants); err != nil {
		return nil, err
	}

	created, err := s.directory.FindThread(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	created.Participants = withoutUser(created.Participants, userID)
	return created, nil
}

// SendMessage persists the message, moves the thread's last-message
// pointer, appends to the room history and fans the message out to every
// member, the sender included. The direct response to the caller and the
// broadcast are independent deliveries with no ordering between them.
func (s *ChatService) SendMessage(ctx context.Context, cmd domain.PostMessageCommand, origin string) (*domain.Message, error) {
	if cmd.ThreadID == "" {
		return nil, errors.ErrMissingThreadID
	}
	messageType := cmd.MessageType
	if messageType == "" {
		messageType = "text"
	}

	message := domain.Message{
		ID:          uuid.NewString(),
		ThreadID:    cmd.ThreadID,
		SenderID:    cmd.SenderID,
		Content:     cmd.Content,
		MessageType: messageType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.directory.CreateMessage(ctx, &message); err != nil {
		return nil, err
	}
	if err := s.directory.SetLastMessage(ctx, cmd.ThreadID, message.ID); err != nil {
		return nil, err
	}

	// The history adapter degrades internally; a store outage never fails
	// the send.
	_ = s.history.Append(ctx, message.RoomID(), domain.HistoryEntry{
		ID:          message.ID,
		Room:        message.ThreadID,
		Sender:      message.SenderID,
		Content:     message.Content,
		MessageType: message.MessageType,
		SentAt:      message.CreatedAt,
	})

	s.broadcaster.Broadcast(ctx, event.MessagePosted{Message: message}, origin, true)
	return &message, nil
}

// RoomHistory returns the room's persisted log in chronological order.
func (s *ChatService) RoomHistory(ctx context.Context, room domain.RoomID) ([]domain.HistoryEntry, error) {
	return s.history.ReadRange(ctx, room, s.historyLimit)
}

func withoutUser(participants []domain.Participant, userID string) []domain.Participant {
	return lo.Filter(participants, func(p domain.Participant, _ int) bool {
		return p.UserID != userID
	})
}
