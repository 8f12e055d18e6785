// Package flowredis backs flow operators with Redis so dedup/history state
// survives process restarts and is shared across multiple runtime
// instances, adapting the teacher's redis.Client into the dataflow
// runtime's Node contract.
package flowredis

import (
	"context"
	"fmt"
	"time"

	"github.com/nordwell-io/flowkit/flow"
	"github.com/nordwell-io/flowkit/redis"
)

// KeyFunc extracts the Redis dedup key's suffix from a value. The default
// renders the value with fmt.Sprint.
type KeyFunc func(value any) string

// uniqueNode implements unique(key) with a Redis-backed seen-set, matching
// flow.NewUnique's contract but sized/evicted by Redis key TTL instead of
// an in-process FIFO, so dedup state is shared across runtime instances
// and survives a restart.
type uniqueNode struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	key    KeyFunc
}

// NewUniqueWithRedisHistory constructs a unique() operator whose seen-set
// is a Redis key per (prefix, key(value)) pair with the given ttl. ttl <= 0
// means the key never expires.
func NewUniqueWithRedisHistory(upstream flow.Node, client *redis.Client, prefix string, ttl time.Duration, key KeyFunc) (flow.Node, error) {
	if key == nil {
		key = defaultKeyFunc
	}
	n := &uniqueNode{client: client, prefix: prefix, ttl: ttl, key: key}
	return flow.NewFilter(upstream, n.seenBefore)
}

func defaultKeyFunc(value any) string { return fmt.Sprint(value) }

// seenBefore is the flow.PredFunc driving the wrapping Filter: it passes
// (emits) iff the Redis SETNX for this value's key succeeds, i.e. this is
// the first time the key has been observed within the ttl window.
func (n *uniqueNode) seenBefore(ctx context.Context, value any) (bool, error) {
	redisKey := n.prefix + ":" + n.key(value)
	ok, err := n.client.Unwrap().SetNX(ctx, redisKey, 1, n.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
