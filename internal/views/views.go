// Package views buffers question view counts in Redis and periodically
// flushes them into the store.
package views

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Counter records pending view increments in a Redis hash keyed by
// question id.
type Counter struct {
	client *redis.Client
	prefix string
}

// NewCounter connects to redisURL and verifies the connection.
func NewCounter(ctx context.Context, redisURL, prefix string) (*Counter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("views: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("views: connect to redis: %w", err)
	}
	return NewCounterFromClient(client, prefix), nil
}

// NewCounterFromClient wraps an existing client.
func NewCounterFromClient(client *redis.Client, prefix string) *Counter {
	if prefix == "" {
		prefix = "clubqa"
	}
	return &Counter{client: client, prefix: prefix}
}

// Close closes the Redis connection.
func (c *Counter) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *Counter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Counter) pendingKey() string {
	return c.prefix + ":views:pending"
}

func (c *Counter) flushingKey() string {
	return c.prefix + ":views:flushing"
}

// Incr records one view and returns the views pending for the question,
// none of which the store reflects yet.
func (c *Counter) Incr(ctx context.Context, questionID string) (int64, error) {
	n, err := c.client.HIncrBy(ctx, c.pendingKey(), questionID, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("views: incr: %w", err)
	}
	return n, nil
}

func (c *Counter) batchIDKey() string {
	return c.prefix + ":views:batch"
}

// claimScript renames the pending hash to the flushing key and stamps the
// batch with an id. It does nothing while nothing is pending or an earlier
// batch is unacknowledged.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 or redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('RENAME', KEYS[1], KEYS[2])
redis.call('SET', KEYS[3], ARGV[1])
return 1
`)

// claim moves the pending hash aside for flushing. It reports false when
// nothing is pending or a previous batch still awaits acknowledgement.
func (c *Counter) claim(ctx context.Context) (bool, error) {
	n, err := claimScript.Run(ctx, c.client,
		[]string{c.pendingKey(), c.flushingKey(), c.batchIDKey()}, uuid.NewString()).Int()
	if err != nil {
		return false, fmt.Errorf("views: claim batch: %w", err)
	}
	return n == 1, nil
}

// batch returns the claimed batch id and counts. The id stays the same
// until the batch is acknowledged, so the store can recognise a batch it
// already absorbed.
func (c *Counter) batch(ctx context.Context) (string, map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, c.flushingKey()).Result()
	if err != nil {
		return "", nil, fmt.Errorf("views: read batch: %w", err)
	}
	if len(raw) == 0 {
		return "", nil, nil
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[id] = n
	}

	// Batches claimed before ids existed get one now.
	if err := c.client.SetNX(ctx, c.batchIDKey(), uuid.NewString(), 0).Err(); err != nil {
		return "", nil, fmt.Errorf("views: batch id: %w", err)
	}
	id, err := c.client.Get(ctx, c.batchIDKey()).Result()
	if err != nil {
		return "", nil, fmt.Errorf("views: batch id: %w", err)
	}
	return id, out, nil
}

// ack drops a batch the store has absorbed.
func (c *Counter) ack(ctx context.Context) error {
	if err := c.client.Del(ctx, c.flushingKey(), c.batchIDKey()).Err(); err != nil {
		return fmt.Errorf("views: ack batch: %w", err)
	}
	return nil
}

// Sink absorbs view count increments. A batch id seen before must be
// ignored, since a batch is redelivered when its acknowledgement fails.
type Sink interface {
	AddViewCounts(ctx context.Context, batchID string, deltas map[string]int64) error
}

// Flusher moves pending counts from a Counter into a Sink.
type Flusher struct {
	counter  *Counter
	sink     Sink
	interval time.Duration
	log      *slog.Logger
	group    singleflight.Group
}

// NewFlusher creates a flusher running every interval.
func NewFlusher(counter *Counter, sink Sink, interval time.Duration, log *slog.Logger) *Flusher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Flusher{counter: counter, sink: sink, interval: interval, log: log}
}

// Flush writes pending counts to the sink and returns how many questions
// were updated. Concurrent calls share one flush.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	v, err, _ := f.group.Do("flush", func() (any, error) {
		return f.flush(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (f *Flusher) flush(ctx context.Context) (int, error) {
	total := 0
	// A batch left by a failed flush goes first; claim refuses to
	// overwrite it.
	for attempt := 0; attempt < 2; attempt++ {
		batchID, counts, err := f.counter.batch(ctx)
		if err != nil {
			return total, err
		}
		if len(counts) > 0 {
			if err := f.sink.AddViewCounts(ctx, batchID, counts); err != nil {
				return total, fmt.Errorf("views: store batch: %w", err)
			}
			if err := f.counter.ack(ctx); err != nil {
				return total, err
			}
			total += len(counts)
		}
		if attempt == 0 {
			claimed, err := f.counter.claim(ctx)
			if err != nil {
				return total, err
			}
			if !claimed {
				break
			}
		}
	}
	return total, nil
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := f.Flush(final); err != nil {
				f.log.Warn("final view flush failed", slog.String("error", err.Error()))
			}
			return nil
		case <-ticker.C:
			n, err := f.Flush(ctx)
			if err != nil {
				f.log.Warn("view flush failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				f.log.Debug("views flushed", slog.Int("questions", n))
			}
		}
	}
}
