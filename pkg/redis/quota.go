package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuotaExhausted is returned by Acquire once the day's budget is spent
var ErrQuotaExhausted = errors.New("daily quota exhausted")

// QuotaCounter tracks a per-day request budget (UTC days).
// With Redis enabled the count is shared across processes via INCR on a
// key that expires after the day; otherwise it lives in this process only.
// ⭐ SSOT: 외부 API 일일 한도 관리는 여기서만
type QuotaCounter struct {
	client *Client
	prefix string
	name   string
	limit  int
	now    func() time.Time

	mu    sync.Mutex
	day   string
	local int
}

// NewQuotaCounter creates a counter; limit <= 0 means unlimited
func NewQuotaCounter(client *Client, prefix, name string, limit int) *QuotaCounter {
	return &QuotaCounter{
		client: client,
		prefix: prefix,
		name:   name,
		limit:  limit,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (q *QuotaCounter) WithClock(now func() time.Time) *QuotaCounter {
	q.now = now
	return q
}

func (q *QuotaCounter) key(day string) string {
	return fmt.Sprintf("%s:quota:%s:%s", q.prefix, q.name, day)
}

// Acquire consumes one unit of today's budget
func (q *QuotaCounter) Acquire(ctx context.Context) error {
	if q.limit <= 0 {
		return nil
	}

	day := q.now().UTC().Format("2006-01-02")

	if q.client == nil || !q.client.Enabled() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.day != day {
			q.day = day
			q.local = 0
		}
		if q.local >= q.limit {
			return fmt.Errorf("%s: %w", q.name, ErrQuotaExhausted)
		}
		q.local++
		return nil
	}

	key := q.key(day)
	pipe := q.client.Redis().TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("quota incr failed: %w", err)
	}

	if incr.Val() > int64(q.limit) {
		return fmt.Errorf("%s: %w", q.name, ErrQuotaExhausted)
	}
	return nil
}

// Used returns how much of today's budget is spent
func (q *QuotaCounter) Used(ctx context.Context) (int, error) {
	day := q.now().UTC().Format("2006-01-02")

	if q.client == nil || !q.client.Enabled() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.day != day {
			return 0, nil
		}
		return q.local, nil
	}

	n, err := q.client.Redis().Get(ctx, q.key(day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota get failed: %w", err)
	}
	if n > q.limit && q.limit > 0 {
		n = q.limit
	}
	return n, nil
}

// Remaining returns today's unspent budget, -1 when unlimited
func (q *QuotaCounter) Remaining(ctx context.Context) (int, error) {
	if q.limit <= 0 {
		return -1, nil
	}
	used, err := q.Used(ctx)
	if err != nil {
		return 0, err
	}
	return q.limit - used, nil
}
