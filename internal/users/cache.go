package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/homestock-backend/pkg/ids"
	"github.com/angelmondragon/homestock-backend/pkg/redis"
)

type cacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SubjectKey(userID string) string
}

// tombstone replaces the cached subject of a deleted account.
const tombstone = "deleted"

// ErrSubjectDeleted is returned by Get and Put when the account has been
// tombstoned by a delete.
var ErrSubjectDeleted = errors.New("subject deleted")

// SubjectCache keeps recently resolved auth subjects in redis for a short TTL.
// Entries are dropped whenever the user changes. A deleted user leaves a
// tombstone that outlives any entry written before the delete.
type SubjectCache struct {
	client cacheClient
	ttl    time.Duration
}

// NewSubjectCache returns nil when client is nil. A nil *SubjectCache is a
// valid, always-missing cache.
func NewSubjectCache(client cacheClient, ttl time.Duration) *SubjectCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubjectCache{client: client, ttl: ttl}
}

func (c *SubjectCache) Get(ctx context.Context, id ids.ID) (Subject, bool, error) {
	if c == nil {
		return Subject{}, false, nil
	}
	raw, err := c.client.Get(ctx, c.client.SubjectKey(id.String()))
	if errors.Is(err, redis.ErrMiss) {
		return Subject{}, false, nil
	}
	if err != nil {
		return Subject{}, false, err
	}
	if raw == tombstone {
		return Subject{}, false, ErrSubjectDeleted
	}
	var subject Subject
	if err := json.Unmarshal([]byte(raw), &subject); err != nil {
		return Subject{}, false, fmt.Errorf("decode cached subject: %w", err)
	}
	if subject.ID != id {
		return Subject{}, false, nil
	}
	return subject, true, nil
}

// Put caches subject unless the key is already taken. A tombstone in the way
// yields ErrSubjectDeleted so a lookup that raced a delete cannot resurrect
// the account.
func (c *SubjectCache) Put(ctx context.Context, subject Subject) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(subject)
	if err != nil {
		return err
	}
	key := c.client.SubjectKey(subject.ID.String())
	written, err := c.client.SetNX(ctx, key, payload, c.ttl)
	if err != nil || written {
		return err
	}
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrMiss) {
			return nil
		}
		return err
	}
	if raw == tombstone {
		return ErrSubjectDeleted
	}
	return nil
}

// Tombstone marks id as deleted, replacing any cached subject. It lives for
// twice the entry TTL.
func (c *SubjectCache) Tombstone(ctx context.Context, id ids.ID) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, c.client.SubjectKey(id.String()), tombstone, 2*c.ttl)
}

func (c *SubjectCache) Invalidate(ctx context.Context, id ids.ID) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, c.client.SubjectKey(id.String()))
}
