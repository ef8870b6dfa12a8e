package runtime

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Lifecycle keeps the registry, the broadcaster subscriptions and the
// presence notifications consistent across connect, join, leave and
// disconnect. Membership mutations are synchronous; only history reads and
// broadcasts happen after the maps settled, so no local observer can see a
// membership change without its paired notification.
type Lifecycle struct {
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	history     contract.IHistoryRepository
	historyLen  int

	// multiRoom keeps previously joined rooms on a new join instead of the
	// default leave-all-but-identity-channel policy.
	multiRoom bool
}

func NewLifecycle(log *slog.Logger, registry *Registry, broadcaster *Broadcaster,
	history contract.IHistoryRepository, historyLen int, multiRoom bool) *Lifecycle {
	return &Lifecycle{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		history:     history,
		historyLen:  historyLen,
		multiRoom:   multiRoom,
	}
}

// Connect binds a freshly accepted connection. Every connection stays
// implicitly joined to its own identity channel, named by its id, which the
// auto-leave policy spares.
func (l *Lifecycle) Connect(connID string, sink contract.EventSink) {
	l.registry.Bind(connID, sink)
	l.registry.Join(connID, domain.RoomID(connID), "")
	l.broadcaster.EnsureRoom(domain.RoomID(connID))
	l.log.Info("Connection established", "conn", connID)
}

// Join moves the connection into a room: evict previous rooms (policy
// permitting), register membership, replay persisted history to the joiner
// only, then announce the arrival to everyone else in the room. The switch
// out of the previous room and into the new one is one registry mutation,
// so no observer can catch the connection in neither room. The arrival is
// announced only when this is the user's first connection in the room.
func (l *Lifecycle) Join(ctx context.Context, connID string, room domain.RoomID, username string) {
	var first bool
	if l.multiRoom {
		first = l.registry.Join(connID, room, username)
	} else {
		var departures []domain.Departure
		departures, first = l.registry.SwitchRoom(connID, domain.RoomID(connID), room, username)
		for _, dep := range departures {
			if dep.RoomEmpty {
				l.broadcaster.ReleaseRoom(dep.Room)
			}
		}
	}

	l.broadcaster.EnsureRoom(room)
	l.log.Info("Connection joined room", "conn", connID, "room", room, "username", username)

	l.replayHistory(ctx, connID, room, username)

	if !first {
		return
	}
	l.broadcaster.Broadcast(ctx, event.UserJoined{
		Room:     room,
		Username: username,
		At:       time.Now().UTC(),
	}, connID, false)
}

// JoinSilently attaches the connection to a room without presence
// notification or replay. Used by thread_messages, which returns the
// history in its own correlated response.
func (l *Lifecycle) JoinSilently(connID string, room domain.RoomID) {
	username, _ := l.registry.UsernameOf(connID)
	l.registry.Join(connID, room, username)
	l.broadcaster.EnsureRoom(room)
	l.log.Debug("Connection joined room silently", "conn", connID, "room", room)
}

// Leave removes the connection from the room and announces the departure
// to the remaining members, once the user's last connection in the room is
// gone. A user with a second live connection in the room is still a member
// and no departure is announced.
func (l *Lifecycle) Leave(ctx context.Context, connID string, room domain.RoomID, username string) {
	stored, dep := l.registry.Leave(connID, room)
	if username == "" {
		username = stored
	}
	if dep.RoomEmpty {
		l.broadcaster.ReleaseRoom(room)
	}
	l.log.Info("Connection left room", "conn", connID, "room", room, "username", username)

	if username == "" || !dep.LastOfUser {
		return
	}
	l.broadcaster.Broadcast(ctx, event.UserLeft{
		Room:     room,
		Username: username,
		At:       time.Now().UTC(),
	}, connID, false)
}

// Disconnect tears the session down, leaving every joined room with the
// same departure notification an explicit leave produces. Disconnecting a
// connection that has no session is a no-op besides logging, so the
// transport may call this as often as it likes.
func (l *Lifecycle) Disconnect(ctx context.Context, connID string) {
	username, departures := l.registry.Unbind(connID)
	if departures == nil {
		l.log.Debug("Disconnect for unknown connection", "conn", connID)
		return
	}
	for _, dep := range departures {
		if dep.RoomEmpty {
			l.broadcaster.ReleaseRoom(dep.Room)
		}
		if dep.Room == domain.RoomID(connID) || username == "" || !dep.LastOfUser {
			continue
		}
		l.broadcaster.Broadcast(ctx, event.UserLeft{
			Room:     dep.Room,
			Username: username,
			At:       time.Now().UTC(),
		}, connID, false)
	}
	l.log.Info("Connection closed", "conn", connID)
}

// replayHistory delivers the room's persisted log to the joining sink,
// tagging each entry isOwn by comparing its stored sender to the joining
// username. A history outage leaves the room usable without replay.
func (l *Lifecycle) replayHistory(ctx context.Context, connID string, room domain.RoomID, username string) {
	entries, err := l.history.ReadRange(ctx, room, l.historyLen)
	if err != nil {
		l.log.Warn("History unavailable, joining without replay", "room", room, "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	for i := range entries {
		entries[i].IsOwn = entries[i].Sender == username
	}
	sink, ok := l.registry.SinkOf(connID)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, event.HistoryReplay{Room: room, Messages: entries}); err != nil {
		l.log.Debug("History replay dropped", "conn", connID, "error", err)
	}
}
