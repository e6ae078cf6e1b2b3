package services

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"studyhub/logger"
)

// Bus fans chat events out across service instances.
type Bus interface {
	Publish(ctx context.Context, ev ChatEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev ChatEvent)) error
	Close() error
}

type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(rdb *goredis.Client, channel string, log *logger.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if channel == "" {
		channel = "studyhub:chat"
	}
	return &RedisBus{log: log.With("service", "RedisChatBus"), rdb: rdb, channel: channel}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev ChatEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes to the channel and calls onEvent for every event
// until ctx is cancelled. It returns once the subscription is confirmed.
func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(ev ChatEvent)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev ChatEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad chat event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
