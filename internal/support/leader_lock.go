package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second
	leadershipRetryDelay = time.Second
	lockOpTimeout        = 5 * time.Second
)

var (
	leaderCounter atomic.Uint64

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

var errLockLost = errors.New("support: leader lock lost")

// RunWithLeader blocks until it holds key, then calls run with a context that
// is cancelled when the lock cannot be renewed. It keeps competing for the
// lock until ctx is done. A nil client runs without coordination.
func RunWithLeader(ctx context.Context, client *redis.Client, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}
	if client == nil {
		run(ctx)
		return ctx.Err()
	}

	owner := leaderID()
	for {
		acquired, err := client.SetNX(ctx, key, owner, ttl).Result()
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warn("leader lock: setnx failed", "key", key, "error", err)
		case acquired:
			log.Debug("leader lock: acquired", "key", key)
			holdLock(ctx, client, key, owner, ttl, run)
			log.Debug("leader lock: released", "key", key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leadershipRetryDelay):
		}
	}
}

func holdLock(ctx context.Context, client *redis.Client, key, owner string, ttl time.Duration, run func(context.Context)) {
	leaderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		run(leaderCtx)
	}()

	ticker := time.NewTicker(max(ttl/3, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-done:
			releaseLock(client, key, owner)
			return
		case <-ticker.C:
			if err := renewLock(client, key, owner, ttl); err != nil {
				log.Warn("leader lock: renewal failed", "key", key, "error", err)
				cancel()
				<-done
				return
			}
		}
	}
}

func renewLock(client *redis.Client, key, owner string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockOpTimeout)
	defer cancel()

	updated, err := renewScript.Run(ctx, client, []string{key}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if updated == 0 {
		return errLockLost
	}
	return nil
}

func releaseLock(client *redis.Client, key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockOpTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, client, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn("leader lock: release failed", "key", key, "error", err)
	}
}

func leaderID() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), leaderCounter.Add(1))
}
