// Package cache keeps a short-lived copy of each shop's live issues so the
// dashboard's frequent polling does not hit the database every time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"coupon-scheduler/internal/model"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActiveIssueCache stores the raw live-issue list per shop. Projections are
// always computed on read so a cached entry never carries a stale status.
type ActiveIssueCache interface {
	Get(ctx context.Context, shopID primitive.ObjectID) ([]*model.Issue, bool)
	Set(ctx context.Context, shopID primitive.ObjectID, issues []*model.Issue)
	Invalidate(ctx context.Context, shopID primitive.ObjectID)
}

const keyPrefix = "active_issues:"

func key(shopID primitive.ObjectID) string {
	return keyPrefix + shopID.Hex()
}

// cachedIssue keeps the field the JSON form of model.Issue hides.
type cachedIssue struct {
	model.Issue
	IssuedBy string `json:"issued_by,omitempty"`
}

type redisActiveIssueCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisActiveIssueCache creates a Redis-backed cache. Redis failures are
// logged and treated as misses.
func NewRedisActiveIssueCache(client *redis.Client, ttl time.Duration) ActiveIssueCache {
	return &redisActiveIssueCache{redis: client, ttl: ttl}
}

func (c *redisActiveIssueCache) Get(ctx context.Context, shopID primitive.ObjectID) ([]*model.Issue, bool) {
	data, err := c.redis.Get(ctx, key(shopID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[CACHE] Failed to read %s: %v", key(shopID), err)
		}
		return nil, false
	}

	var cached []cachedIssue
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("[CACHE] Dropping unreadable %s: %v", key(shopID), err)
		c.Invalidate(ctx, shopID)
		return nil, false
	}

	issues := make([]*model.Issue, 0, len(cached))
	for _, ci := range cached {
		issue := ci.Issue
		issue.IssuedBy = ci.IssuedBy
		issues = append(issues, &issue)
	}
	return issues, true
}

func (c *redisActiveIssueCache) Set(ctx context.Context, shopID primitive.ObjectID, issues []*model.Issue) {
	cached := make([]cachedIssue, 0, len(issues))
	for _, issue := range issues {
		cached = append(cached, cachedIssue{Issue: *issue, IssuedBy: issue.IssuedBy})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal active issues: %v", err)
		return
	}
	if err := c.redis.Set(ctx, key(shopID), data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] Failed to set %s: %v", key(shopID), err)
	}
}

func (c *redisActiveIssueCache) Invalidate(ctx context.Context, shopID primitive.ObjectID) {
	if err := c.redis.Del(ctx, key(shopID)).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate %s: %v", key(shopID), err)
	}
}

// Noop never stores anything. It is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(context.Context, primitive.ObjectID) ([]*model.Issue, bool) { return nil, false }
func (Noop) Set(context.Context, primitive.ObjectID, []*model.Issue)         {}
func (Noop) Invalidate(context.Context, primitive.ObjectID)                  {}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
