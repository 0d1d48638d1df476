package pago

import (
	"context"
	"sync"
	"time"

	platformredis "github.com/dewauriarte/SIGCERH-sub005/internal/platform/redis"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Deduper is the fast-path replay filter in front of the bridge. It is an
// optimization only: the durable idempotency check is the Pago state test in
// Process, so a deduper miss (restart, TTL expiry) is always safe.
type Deduper interface {
	// Seen marks the webhook id and reports whether it was already marked.
	Seen(ctx context.Context, id domain.WebhookID) (bool, error)
}

// RedisDeduper keys processed webhook ids in Redis with a TTL. Survives
// process restarts and is shared across replicas.
type RedisDeduper struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *platformredis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, id domain.WebhookID) (bool, error) {
	created, err := d.client.SetNX(ctx, "webhook:procesado:"+id.String(), "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}

// MemoryDeduper is the single-process fallback when Redis is not configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[domain.WebhookID]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[domain.WebhookID]struct{})}
}

func (d *MemoryDeduper) Seen(_ context.Context, id domain.WebhookID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true, nil
	}
	d.seen[id] = struct{}{}
	return false, nil
}
