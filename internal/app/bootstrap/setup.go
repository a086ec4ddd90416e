package bootstrap

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"scangate/internal/config"
	"scangate/internal/database"
	"scangate/internal/ratelimit"
	"scangate/internal/validation"
)

var ErrRedisRequired = errors.New("bootstrap: redis rate limit store selected but no redis client available")

// Setup loads settings and opens the database. It must run before the router
// is built.
func Setup() error {
	if err := config.ReadSettings(); err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	if _, err := database.SetupDB(); err != nil {
		return fmt.Errorf("set up database: %w", err)
	}
	return nil
}

// NewTargetValidator applies the operator block rules and TLD list from the
// settings file on top of the built-in rules.
func NewTargetValidator(cfg config.Config) *validation.TargetValidator {
	opts := []validation.Option{
		validation.WithExtraBlockRules(cfg.Target.ExtraBlockedHosts...),
	}
	if len(cfg.Target.KnownTLDs) > 0 {
		opts = append(opts, validation.WithKnownTLDs(cfg.Target.KnownTLDs...))
	}

	if n := len(cfg.Target.ExtraBlockedHosts); n > 0 {
		log.Info("Loaded extra target block rules", "count", n)
	}
	return validation.NewTargetValidator(opts...)
}

// NewLimiter builds the rate limiter for the configured store. store overrides
// the settings file when non-empty.
func NewLimiter(cfg config.Config, store string, client *redis.Client) (*ratelimit.Limiter, error) {
	if store == "" {
		store = cfg.RateLimit.Store
	}

	switch store {
	case config.StoreRedis:
		if client == nil {
			return nil, ErrRedisRequired
		}
		log.Info("Using redis rate limit store")
		return ratelimit.New(ratelimit.RedisStoreFactory(client)), nil
	case config.StoreMemory, "":
		maxKeys := cfg.RateLimit.MaxTrackedKeys
		log.Info("Using in-memory rate limit store", "max_tracked_keys", maxKeys)
		return ratelimit.New(func(ratelimit.Category) ratelimit.Store {
			return ratelimit.NewMemoryStore(ratelimit.WithMaxKeys(maxKeys))
		}), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown rate limit store %q", store)
	}
}
