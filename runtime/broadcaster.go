package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Event kinds carried on the pub/sub backbone.
const (
	kindMessage    = "message"
	kindUserJoined = "user-joined"
	kindUserLeft   = "user-left"
)

// wireEvent is the backbone envelope. Origin identifies the publishing
// connection so presence events can skip it during local delivery; peer
// processes never hold that connection, so for them the exclusion is moot.
type wireEvent struct {
	Kind          string          `json:"kind"`
	Room          string          `json:"room"`
	Origin        string          `json:"origin,omitempty"`
	IncludeOrigin bool            `json:"includeOrigin"`
	Payload       json.RawMessage `json:"payload"`
}

// Broadcaster fans a domain event out to every connection in a room,
// across all serving processes. Publishes go through the pub/sub
// collaborator; each process, the publisher included, receives them on its
// own subscription and performs local delivery to its registry's sinks.
//
// Best-effort only: events published while the backbone is down are lost to
// peer processes, with no replay beyond the history read path at join time.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
	pubsub   contract.IPubSub
	timeout  time.Duration

	mu         sync.Mutex
	subscribed map[domain.RoomID]struct{}
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, pubsub contract.IPubSub, timeout time.Duration) *Broadcaster {
	return &Broadcaster{
		log:        log,
		registry:   registry,
		pubsub:     pubsub,
		timeout:    timeout,
		subscribed: make(map[domain.RoomID]struct{}),
	}
}

// EnsureRoom subscribes this process to a room's channel. Idempotent, the
// lifecycle calls it on every local join.
func (b *Broadcaster) EnsureRoom(room domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribed[room]; ok {
		return
	}
	b.subscribed[room] = struct{}{}
	b.pubsub.Subscribe(room, func(data []byte) {
		b.deliver(room, data)
	})
}

// ReleaseRoom drops the subscription. The lifecycle calls it once the last
// local connection left the room.
func (b *Broadcaster) ReleaseRoom(room domain.RoomID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribed[room]; !ok {
		return
	}
	delete(b.subscribed, room)
	b.pubsub.Unsubscribe(room)
}

// Broadcast publishes a domain event to the event's room. Presence events
// pass includeOrigin=false so the originating connection does not hear
// about itself; message events include everyone.
func (b *Broadcaster) Broadcast(ctx context.Context, e event.DomainEvent, origin string, includeOrigin bool) {
	kind, payload, err := encodeEvent(e)
	if err != nil {
		b.log.Error("Failed to encode broadcast event", "room", e.RoomID(), "error", err)
		return
	}
	data, err := json.Marshal(wireEvent{
		Kind:          kind,
		Room:          e.RoomID().String(),
		Origin:        origin,
		IncludeOrigin: includeOrigin,
		Payload:       payload,
	})
	if err != nil {
		b.log.Error("Failed to encode wire event", "room", e.RoomID(), "error", err)
		return
	}
	if err := b.pubsub.Publish(ctx, e.RoomID(), data); err != nil {
		b.log.Warn("Broadcast backbone unavailable, event lost to peer processes",
			"room", e.RoomID(), "kind", kind, "error", err)
	}
}

// deliver hands a backbone event to every local sink currently in the room.
func (b *Broadcaster) deliver(room domain.RoomID, data []byte) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		b.log.Warn("Dropping malformed backbone event", "room", room, "error", err)
		return
	}
	evt, err := decodeEvent(wire)
	if err != nil {
		b.log.Warn("Dropping unknown backbone event", "room", room, "kind", wire.Kind, "error", err)
		return
	}

	exclude := ""
	if !wire.IncludeOrigin {
		exclude = wire.Origin
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	for _, sink := range b.registry.SinksForRoom(room, exclude) {
		// A failed consume means the connection is going away. Its own
		// disconnect path cleans the registry up.
		if err := sink.Consume(ctx, evt); err != nil {
			b.log.Debug("Sink rejected event", "room", room, "conn", sink.ID(), "error", err)
		}
	}
}

func encodeEvent(e event.DomainEvent) (string, json.RawMessage, error) {
	var kind string
	switch e.(type) {
	case event.MessagePosted:
		kind = kindMessage
	case event.UserJoined:
		kind = kindUserJoined
	case event.UserLeft:
		kind = kindUserLeft
	default:
		return "", nil, fmt.Errorf("event %T is not broadcastable", e)
	}
	payload, err := json.Marshal(e)
	return kind, payload, err
}

func decodeEvent(wire wireEvent) (event.DomainEvent, error) {
	switch wire.Kind {
	case kindMessage:
		var e event.MessagePosted
		err := json.Unmarshal(wire.Payload, &e)
		return e, err
	case kindUserJoined:
		var e event.UserJoined
		err := json.Unmarshal(wire.Payload, &e)
		return e, err
	case kindUserLeft:
		var e event.UserLeft
		err := json.Unmarshal(wire.Payload, &e)
		return e, err
	default:
		return nil, fmt.Errorf("unknown kind %q", wire.Kind)
	}
}
