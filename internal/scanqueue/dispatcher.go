package scanqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scangate/internal/domain"
)

const pushTimeout = 3 * time.Second

var ErrNoClient = errors.New("scanqueue: redis client not configured")

// Job is the payload workers pop from the pending list.
type Job struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Target      string    `json:"target"`
	IsIP        bool      `json:"is_ip"`
	Warnings    []string  `json:"warnings,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func JobFromRequest(req domain.ScanRequest) Job {
	return Job{
		ID:          req.ID,
		UserID:      req.UserID,
		Target:      req.Target,
		IsIP:        req.IsIP,
		Warnings:    []string(req.Warnings),
		RequestedAt: req.CreatedAt.UTC(),
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// RedisDispatcher pushes jobs onto the head of a list; consumers BRPOP the tail.
type RedisDispatcher struct {
	client redis.Cmdable
	key    string
}

func NewRedisDispatcher(client redis.Cmdable, key string) *RedisDispatcher {
	return &RedisDispatcher{client: client, key: key}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, job Job) error {
	if d == nil || d.client == nil {
		return ErrNoClient
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("scanqueue: encode job: %w", err)
	}

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	if err := d.client.LPush(pushCtx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("scanqueue: push job %d: %w", job.ID, err)
	}
	return nil
}

func (d *RedisDispatcher) Pending(ctx context.Context) (int64, error) {
	if d == nil || d.client == nil {
		return 0, ErrNoClient
	}
	return d.client.LLen(ctx, d.key).Result()
}
