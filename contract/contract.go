//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// EventSink is one live connection's inbound side. Consume must be safe to
// call after the connection closed; delivery then becomes a silent no-op.
type EventSink interface {
	ID() string
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Bind(connID string, sink EventSink)
	Join(connID string, room domain.RoomID, username string) (firstOfUser bool)
	Leave(connID string, room domain.RoomID) (username string, dep domain.Departure)
	SwitchRoom(connID string, keep, room domain.RoomID, username string) ([]domain.Departure, bool)
	Unbind(connID string) (username string, departures []domain.Departure)
	SinksForRoom(room domain.RoomID, exclude string) []EventSink
	MembersOf(room domain.RoomID) []string
	UsernameOf(connID string) (string, bool)
}

// IDirectoryRepository is the narrow facade over the relational collaborator.
type IDirectoryRepository interface {
	FindUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	FindThreadsForUser(ctx context.Context, userID string) ([]domain.Thread, error)
	FindThread(ctx context.Context, threadID string) (*domain.Thread, error)
	CreateThread(ctx context.Context) (*domain.Thread, error)
	AddParticipants(ctx context.Context, threadID string, userIDs []string) error
	CreateMessage(ctx context.Context, message *domain.Message) error
	SetLastMessage(ctx context.Context, threadID, messageID string) error
	ThreadIDsForUser(ctx context.Context, userID string) ([]string, error)
	UserIDsInThreads(ctx context.Context, threadIDs []string, exclude string) ([]string, error)
}

// IHistoryRepository is the append-only per-room log with bounded retention.
// Implementations degrade on store outage: writes become no-ops and reads
// return empty results, with a logged warning.
type IHistoryRepository interface {
	Append(ctx context.Context, room domain.RoomID, entry domain.HistoryEntry) error
	ReadRange(ctx context.Context, room domain.RoomID, limit int) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context, room domain.RoomID) error
}

// IPubSub relays room-scoped publishes to every subscribed process,
// including the publisher's own subscription. A single-process deployment
// satisfies this with direct local delivery, keeping one code path.
type IPubSub interface {
	Publish(ctx context.Context, room domain.RoomID, data []byte) error
	Subscribe(room domain.RoomID, handler func(data []byte))
	Unsubscribe(room domain.RoomID)
	Close() error
}

// IAuthorizer is consulted before every dispatch. The permissive default is
// development-only; see auth.AllowAll.
type IAuthorizer interface {
	Authorize(token string) error
}
