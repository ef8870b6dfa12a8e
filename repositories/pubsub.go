package repositories

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"chat-relay/domain"
)

const roomChannelPrefix = "room."

func roomChannel(room domain.RoomID) string {
	return roomChannelPrefix + room.String()
}

// RedisPubSub relays room-scoped publishes to every subscribed process.
// Redis delivers a publish to the publisher's own subscription too, so
// local and remote delivery share one path. No delivery guarantee exists
// across an outage: events published while the backbone is down are lost
// to processes other than the originator.
type RedisPubSub struct {
	client *redis.Client
	log    *slog.Logger

	mu       sync.RWMutex
	handlers map[string]func(data []byte) // channel -> handler
	sub      *redis.PubSub
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRedisPubSub(client *redis.Client, log *slog.Logger) *RedisPubSub {
	return &RedisPubSub{
		client:   client,
		log:      log,
		handlers: make(map[string]func(data []byte)),
		done:     make(chan struct{}),
	}
}

// Start opens the subscriber connection and begins routing inbound
// backbone messages to the per-room handlers.
func (p *RedisPubSub) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.sub = p.client.Subscribe(ctx)

	go func() {
		defer close(p.done)
		ch := p.sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p.mu.RLock()
				handler := p.handlers[msg.Channel]
				p.mu.RUnlock()
				if handler != nil {
					handler([]byte(msg.Payload))
				}
			}
		}
	}()
}

func (p *RedisPubSub) Publish(ctx context.Context, room domain.RoomID, data []byte) error {
	return p.client.Publish(ctx, roomChannel(room), data).Err()
}

func (p *RedisPubSub) Subscribe(room domain.RoomID, handler func(data []byte)) {
	channel := roomChannel(room)

	p.mu.Lock()
	p.handlers[channel] = handler
	p.mu.Unlock()

	if err := p.sub.Subscribe(context.Background(), channel); err != nil {
		p.log.Warn("Backbone subscribe failed", "room", room, "error", err)
	}
}

func (p *RedisPubSub) Unsubscribe(room domain.RoomID) {
	channel := roomChannel(room)

	p.mu.Lock()
	delete(p.handlers, channel)
	p.mu.Unlock()

	if err := p.sub.Unsubscribe(context.Background(), channel); err != nil {
		p.log.Warn("Backbone unsubscribe failed", "room", room, "error", err)
	}
}

func (p *RedisPubSub) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.sub == nil {
		return nil
	}
	err := p.sub.Close()
	<-p.done
	return err
}

// LocalPubSub is the single-process implementation of the backbone:
// publish is direct local delivery to the room's handler.
type LocalPubSub struct {
	mu       sync.RWMutex
	handlers map[domain.RoomID]func(data []byte)
}

func NewLocalPubSub() *LocalPubSub {
	return &LocalPubSub{handlers: make(map[domain.RoomID]func(data []byte))}
}

func (p *LocalPubSub) Publish(_ context.Context, room domain.RoomID, data []byte) error {
	p.mu.RLock()
	handler := p.handlers[room]
	p.mu.RUnlock()

	if handler != nil {
		handler(data)
	}
	return nil
}

func (p *LocalPubSub) Subscribe(room domain.RoomID, handler func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[room] = handler
}

func (p *LocalPubSub) Unsubscribe(room domain.RoomID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handlers, room)
}

func (p *LocalPubSub) Close() error {
	return nil
}
