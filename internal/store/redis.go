// redis.go -- go-redis client and the Redis-backed install event queue.
//
// QueuedRecorder implements EventRecorder by pushing events onto a Redis list so
// the HTTP handler returns without waiting for Postgres; StartWorker drains the
// list in a background goroutine and hands each event to the inner recorder.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventQueueKey is the Redis list used as the install event queue.
const EventQueueKey = "obol:events:queue"

// DefaultMaxQueueSize caps the queue when the database is down. 0 = unlimited.
const DefaultMaxQueueSize int64 = 1000

// ErrQueueFull is returned by RecordEvent when the queue has reached its size cap.
var ErrQueueFull = errors.New("event queue full")

// NewRedisClient parses redisURL, connects, and pings with backoff.
// The returned client is shared by everything that needs Redis.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := retryConnect(ctx, "redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// QueuedRecorder enqueues install events to Redis. Implements EventRecorder --
// callers are unaware of async dispatch.
type QueuedRecorder struct {
	inner        EventRecorder
	rdb          *redis.Client
	maxQueueSize int64 // 0 = unlimited
}

// NewQueuedRecorder wraps inner with a Redis-backed async queue.
// maxSize caps the queue length (0 = unlimited); use DefaultMaxQueueSize for production.
func NewQueuedRecorder(inner EventRecorder, rdb *redis.Client, maxSize int64) *QueuedRecorder {
	return &QueuedRecorder{inner: inner, rdb: rdb, maxQueueSize: maxSize}
}

// enqueueScript atomically checks the queue length and pushes the event only if
// under the cap. Returns 1 if enqueued, 0 if rejected (queue full).
// KEYS[1] = queue key, ARGV[1] = max size (0 = skip check), ARGV[2] = payload.
var enqueueScript = redis.NewScript(`
local max = tonumber(ARGV[1])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
    return 0
end
redis.call('RPUSH', KEYS[1], ARGV[2])
return 1
`)

// RecordEvent serializes ev to JSON and appends it to the queue.
// Returns ErrQueueFull if the queue has reached maxQueueSize.
func (q *QueuedRecorder) RecordEvent(ctx context.Context, ev InstallEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling install event: %w", err)
	}
	ok, err := enqueueScript.Run(ctx, q.rdb, []string{EventQueueKey}, q.maxQueueSize, data).Int64()
	if err != nil {
		return fmt.Errorf("enqueuing install event: %w", err)
	}
	if ok == 0 {
		return ErrQueueFull
	}
	return nil
}

// CheckHealth pings Redis.
func (q *QueuedRecorder) CheckHealth(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// StartWorker drains the queue in a loop, handing each event to inner.
// Blocks until ctx is cancelled (server shutdown). Call in a goroutine.
func (q *QueuedRecorder) StartWorker(ctx context.Context) {
	for {
		// BLPop blocks up to 2s then returns redis.Nil -- keeps the loop
		// responsive to ctx cancellation without busy-spinning.
		res, err := q.rdb.BLPop(ctx, 2*time.Second, EventQueueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				return // server shutting down
			}
			if errors.Is(err, redis.Nil) {
				continue // timeout; check ctx and try again
			}
			slog.Error("event worker: queue pop failed", "err", err)
			// Back off briefly so a dead Redis does not spin the loop.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] = key name, res[1] = payload
		var ev InstallEvent
		if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
			slog.Error("event worker: bad event payload", "err", err)
			continue
		}
		q.dispatch(ctx, ev)
	}
}

// dispatch hands ev to the inner recorder. Errors are logged and dropped -- no retry.
func (q *QueuedRecorder) dispatch(ctx context.Context, ev InstallEvent) {
	if err := q.inner.RecordEvent(ctx, ev); err != nil {
		slog.Error("event worker: record failed", "action", ev.Action, "handle", ev.Handle, "err", err)
	}
}
