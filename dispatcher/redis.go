package dispatcher

import (
	"context"
	"fmt"

	"github.com/netrixframework/timeoutd/config"
	"github.com/netrixframework/timeoutd/types"
	"github.com/redis/go-redis/v9"
)

// RedisSink pushes replies onto the list named by a `redis://<key>` address
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink connects to redis and checks the connection
func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisSink{client: client}, nil
}

// Send implements ReplySink
func (r *RedisSink) Send(ctx context.Context, to types.Address, reply *types.Reply) error {
	key := to.Target()
	if key == "" {
		return ErrBadAddress
	}
	value, err := reply.Marshal()
	if err != nil {
		return ErrFailedMarshal
	}
	if err := r.client.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	return nil
}

// Close implements ReplySink
func (r *RedisSink) Close() error {
	return r.client.Close()
}
