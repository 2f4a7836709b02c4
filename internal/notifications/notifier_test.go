package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, n.PublishBroadcast(context.Background(), "x"))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(string, string) {}))
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "notifications:user:42", UserChannel(42))
}

func TestHub_StartWiringWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	notifier := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, notifier))

	c, _ := hub.Register(9, nil)
	require.NoError(t, notifier.PublishUser(ctx, 9, "direct"))

	assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, "direct", string(<-c.Send))
}

func TestPublisher(t *testing.T) {
	t.Run("local hub without redis", func(t *testing.T) {
		hub := NewHub()
		c, _ := hub.Register(1, nil)

		NewPublisher(hub, NewNotifier(nil)).Publish(context.Background(), EventPostCreated, map[string]any{"id": 3})

		var env struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(<-c.Send, &env))
		assert.Equal(t, EventPostCreated, env.Type)
		assert.Equal(t, float64(3), env.Payload["id"])
	})

	t.Run("through redis broadcast", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := NewHub()
		notifier := NewNotifier(rdb)
		require.NoError(t, hub.StartWiring(ctx, notifier))
		c, _ := hub.Register(2, nil)

		NewPublisher(hub, notifier).Publish(ctx, EventCommentCreated, map[string]any{"post_id": 1})

		assert.Eventually(t, func() bool { return len(c.Send) == 1 }, testEventuallyTimeout, testPollInterval)
		assert.Contains(t, string(<-c.Send), EventCommentCreated)
	})

	t.Run("nil publisher", func(t *testing.T) {
		var p *Publisher
		p.Publish(context.Background(), EventPostDeleted, nil)
	})
}
