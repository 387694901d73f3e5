package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisRelay fans deliveries out to every hub instance over a Redis pub/sub
// channel. Each instance, the publisher included, delivers what it receives
// to its own connections.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *slog.Logger
	ready   chan struct{}
}

func NewRedisRelay(client *redis.Client, channel string, log *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		log:     log,
		ready:   make(chan struct{}),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding delivery: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel, err)
	}
	return nil
}

// Ready is closed once the subscription is active.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Attach starts Run and, once the subscription is live, routes hub's
// deliveries through the relay. Until then the hub keeps delivering locally,
// so nothing is published to a channel this instance is not yet reading.
// The returned wait blocks until Run ends.
func (r *RedisRelay) Attach(ctx context.Context, hub *Hub) (wait func() error, err error) {
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx, hub.DeliverLocal) }()

	select {
	case <-r.Ready():
		hub.SetPublisher(r)
		return func() error { return <-errc }, nil
	case runErr := <-errc:
		if runErr == nil {
			runErr = errors.New("ws relay: stopped before subscribing")
		}
		return nil, runErr
	}
}

// Run subscribes and hands every delivery to deliver until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, deliver func(Delivery)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	close(r.ready)
	r.log.Info("ws relay: subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				r.log.Warn("ws relay: bad delivery", "error", err)
				continue
			}
			deliver(d)
		}
	}
}
