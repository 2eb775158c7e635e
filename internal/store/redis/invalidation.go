package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// invalidationChannel carries resolver cache invalidations. Every
// instance subscribes, including the publisher, so one feed keeps all
// host caches in agreement after a binding or tenant mutation.
const invalidationChannel = "gurukul:resolver:invalidate"

// wildcardAll drops every cached host, used for tenant-level mutations
// whose affected host set is not known to the publisher.
const wildcardAll = "*"

type Invalidation struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Invalidation, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Invalidation{client: client}, nil
}

func (i *Invalidation) Close() error {
	if err := i.client.Close(); err != nil {
		return fmt.Errorf("redis.Invalidation.Close: %w", err)
	}
	return nil
}

// InvalidateHost broadcasts an invalidation for one hostname.
func (i *Invalidation) InvalidateHost(ctx context.Context, host string) error {
	if err := i.client.Publish(ctx, invalidationChannel, host).Err(); err != nil {
		return fmt.Errorf("redis.Invalidation.InvalidateHost: %w", err)
	}
	return nil
}

// InvalidateAll broadcasts a full cache drop.
func (i *Invalidation) InvalidateAll(ctx context.Context) error {
	if err := i.client.Publish(ctx, invalidationChannel, wildcardAll).Err(); err != nil {
		return fmt.Errorf("redis.Invalidation.InvalidateAll: %w", err)
	}
	return nil
}

// Subscribe returns the invalidation feed. The channel closes when ctx
// is done; the cleanup func must be called to drop the subscription.
func (i *Invalidation) Subscribe(ctx context.Context) (<-chan []byte, func(), error) {
	sub := i.client.Subscribe(ctx, invalidationChannel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Invalidation.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}
