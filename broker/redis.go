package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/launchpad/boot"

	"github.com/go-redis/redis/v7"
	extErrors "github.com/pkg/errors"
)

var _ boot.Notifier = &RedisBroker{}

const (
	// RedisChannel receives every boot transition
	RedisChannel string = "launchpad:boot"
	redisKeyPrefix       = "launchpad:boot:"
)

// RedisClient is the subset of redis.UniversalClient used by RedisBroker
type RedisClient interface {
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(channel string, message interface{}) *redis.IntCmd
}

// RedisBroker mirrors the latest boot transition into a key and publishes it
type RedisBroker struct {
	client RedisClient
}

func NewRedisBroker(client RedisClient) (*RedisBroker, error) {
	if client == nil {
		return nil, fmt.Errorf("nil RedisClient is invalid")
	}
	return &RedisBroker{
		client: client,
	}, nil
}

// LatestKey returns the key holding the latest transition of an instance
func LatestKey(instanceID string) string {
	return redisKeyPrefix + instanceID
}

func (r *RedisBroker) Notify(ctx context.Context, t boot.Transition) error {
	body, err := NewEvent(t).JSON()
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode boot transition")
	}
	if err := r.client.Set(LatestKey(t.InstanceID), body, 0).Err(); err != nil {
		return extErrors.Wrap(err, "Cannot store boot transition")
	}
	if err := r.client.Publish(RedisChannel, body).Err(); err != nil {
		return extErrors.Wrap(err, "Cannot publish boot transition")
	}
	return nil
}
