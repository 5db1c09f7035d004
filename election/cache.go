package election

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"

	"github.com/campuselect/api.vote.campuselect.dev/redis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const statusCacheKey = "cached:election:status"

// Cache holds recent status snapshots. A hit may be up to the cache TTL
// stale; admin mutations invalidate the key immediately.
type Cache interface {
	// Get returns (nil, true) when a "no current election" marker is
	// cached, (snapshot, true) on a hit and (nil, false) on a miss.
	Get(ctx context.Context) (*StatusSnapshot, bool)
	Set(ctx context.Context, snapshot StatusSnapshot)
	SetMissing(ctx context.Context)
	Invalidate(ctx context.Context) error
}

type redisCache struct {
	ttl time.Duration
}

func NewRedisCache(ttl time.Duration) Cache {
	return &redisCache{ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context) (*StatusSnapshot, bool) {
	val, err := redis.Client.Get(ctx, statusCacheKey).Result()
	if err != nil {
		if err != redis.ErrNil {
			log.Errorf("redis, err=%v", err)
		}
		return nil, false
	}
	if val == "dead" {
		return nil, true
	}
	snapshot := &StatusSnapshot{}
	if err = json.UnmarshalFromString(val, snapshot); err != nil {
		log.Errorf("json, err=%v", err)
		return nil, false
	}
	return snapshot, true
}

func (c *redisCache) Set(ctx context.Context, snapshot StatusSnapshot) {
	val, err := json.MarshalToString(snapshot)
	if err != nil {
		log.Errorf("json, err=%v", err)
		return
	}
	if err = redis.Client.Set(ctx, statusCacheKey, val, c.ttl).Err(); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

func (c *redisCache) SetMissing(ctx context.Context) {
	if err := redis.Client.Set(ctx, statusCacheKey, "dead", c.ttl).Err(); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context) error {
	return redis.Client.Del(ctx, statusCacheKey).Err()
}
