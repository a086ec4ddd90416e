package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"scangate/internal/database"
	"scangate/internal/support"
)

const (
	envCleanupInterval    = "RESET_CLEANUP_INTERVAL"
	defaultCleanupMinutes = 30
	resetCleanupLockKey   = "scangate:leader:reset_cleanup"
)

// StartResetCleanupRoutine prunes used and expired password reset tokens.
// With a redis client only one instance runs the loop at a time.
func StartResetCleanupRoutine(ctx context.Context, client *redis.Client) error {
	err := support.RunWithLeader(ctx, client, resetCleanupLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runResetCleanupLoop(leaderCtx, resolveCleanupInterval())
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Reset cleanup routine stopped", "error", err)
		return err
	}
	return nil
}

func runResetCleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runResetCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runResetCleanup(ctx)
		}
	}
}

func resolveCleanupInterval() time.Duration {
	if raw := support.GetEnv(envCleanupInterval, ""); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
		log.Warn("Invalid RESET_CLEANUP_INTERVAL value, using default", "value", raw)
	}
	return time.Duration(defaultCleanupMinutes) * time.Minute
}

func runResetCleanup(ctx context.Context) {
	if database.DB == nil || ctx.Err() != nil {
		return
	}

	start := time.Now()
	removed, err := database.DeleteExpiredPasswordResets(ctx, start)
	if err != nil {
		log.Error("Failed to cleanup password resets", "error", err)
		return
	}
	if removed > 0 {
		log.Info("Password reset cleanup completed", "removed", removed, "duration", time.Since(start))
	}
}
