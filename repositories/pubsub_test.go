package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func TestLocalPubSub_Delivers_To_Subscribed_Room_Only(t *testing.T) {
	req := require.New(t)
	pubsub := NewLocalPubSub()
	var received [][]byte

	// Given a handler on one room
	pubsub.Subscribe(domain.RoomID("thread-1"), func(data []byte) {
		received = append(received, data)
	})

	// When publishing to that room and to another
	req.NoError(pubsub.Publish(context.Background(), domain.RoomID("thread-1"), []byte("a")))
	req.NoError(pubsub.Publish(context.Background(), domain.RoomID("thread-2"), []byte("b")))

	// Then only the subscribed room's publish arrived
	req.Len(received, 1)
	req.Equal([]byte("a"), received[0])
}

func TestLocalPubSub_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	pubsub := NewLocalPubSub()
	count := 0

	pubsub.Subscribe(domain.RoomID("thread-1"), func([]byte) {
		count++
	})
	pubsub.Unsubscribe(domain.RoomID("thread-1"))

	req.NoError(pubsub.Publish(context.Background(), domain.RoomID("thread-1"), []byte("a")))
	req.Zero(count)
}

func TestRedisPubSub_Publisher_Receives_Its_Own_Publish(t *testing.T) {
	req := require.New(t)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	pubsub := NewRedisPubSub(client, logs.GetLoggerFromLevel(slog.LevelDebug))
	pubsub.Start(context.Background())
	t.Cleanup(func() {
		_ = pubsub.Close()
	})

	received := make(chan []byte, 1)
	pubsub.Subscribe(domain.RoomID("thread-1"), func(data []byte) {
		received <- data
	})

	// When this process publishes to its own subscribed room
	req.NoError(pubsub.Publish(context.Background(), domain.RoomID("thread-1"), []byte("hello")))

	// Then the publish loops back through the backbone
	select {
	case data := <-received:
		req.Equal([]byte("hello"), data)
	case <-time.After(2 * time.Second):
		req.Fail("backbone did not loop the publish back in time")
	}
}

func TestRedisPubSub_Unsubscribe_Stops_Delivery(t *testing.T) {
	req := require.New(t)
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	pubsub := NewRedisPubSub(client, logs.GetLoggerFromLevel(slog.LevelDebug))
	pubsub.Start(context.Background())
	t.Cleanup(func() {
		_ = pubsub.Close()
	})

	received := make(chan []byte, 1)
	pubsub.Subscribe(domain.RoomID("thread-1"), func(data []byte) {
		received <- data
	})
	pubsub.Unsubscribe(domain.RoomID("thread-1"))

	req.NoError(pubsub.Publish(context.Background(), domain.RoomID("thread-1"), []byte("hello")))

	select {
	case <-received:
		req.Fail("delivery happened after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
