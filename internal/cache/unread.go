// Package cache keeps per-user unread summaries in Redis so sidebar
// polling does not hit Mongo on every request. Misses and Redis errors
// fall through to the store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type UnreadSummary struct {
	Total           int64            `json:"total"`
	PerConversation map[string]int64 `json:"perConversation"`
}

type UnreadCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewUnreadCache(client *redis.Client, prefix string) *UnreadCache {
	return &UnreadCache{client: client, prefix: prefix, ttl: 30 * time.Second}
}

func (c *UnreadCache) key(userID string) string {
	return fmt.Sprintf("%s:unread:%s", c.prefix, userID)
}

func (c *UnreadCache) Get(ctx context.Context, userID string) (*UnreadSummary, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	b, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var s UnreadSummary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *UnreadCache) Set(ctx context.Context, userID string, s *UnreadSummary) {
	if c == nil || c.client == nil {
		return
	}
	b, _ := json.Marshal(s)
	_ = c.client.Set(ctx, c.key(userID), b, c.ttl).Err()
}

// Invalidate drops cached summaries for the given users; called after
// a send or a read advances somebody's watermark.
func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...string) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	_ = c.client.Del(ctx, keys...).Err()
}
