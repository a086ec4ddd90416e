package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"scangate/internal/app/bootstrap"
	"scangate/internal/app/server"
	"scangate/internal/config"
	"scangate/internal/jobs/maintenance"
	"scangate/internal/scanqueue"
	"scangate/internal/support"
)

const defaultBackendPort = 8082

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	backendPortFlag := flag.Int("backend-port", defaultBackendPort, "Port for API server")
	productionFlag := flag.Bool("production", false, "Run in production mode")
	storeFlag := flag.String("rate-limit-store", "", "Rate limit store: memory or redis (defaults to settings)")
	flag.Parse()

	config.SetProductionMode(*productionFlag)
	if config.InProductionMode {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(log.DebugLevel)
	}

	backendPort := resolvePort("BACKEND_PORT", "PORT", *backendPortFlag)
	store := resolveStore(*storeFlag)

	if err := bootstrap.Setup(); err != nil {
		return err
	}
	cfg := config.GetConfig()
	if store == "" {
		store = cfg.RateLimit.Store
	}

	redisClient := connectRedis(store == config.StoreRedis)
	if store == config.StoreRedis && redisClient == nil {
		return fmt.Errorf("rate limit store %q needs redis", store)
	}
	defer func() {
		if err := support.CloseRedisClient(); err != nil {
			log.Warn("error closing redis client", "error", err)
		}
	}()

	limiter, err := bootstrap.NewLimiter(cfg, store, redisClient)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Limiter:           limiter,
		Validator:         bootstrap.NewTargetValidator(cfg),
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
	}
	if redisClient != nil {
		deps.Dispatcher = scanqueue.NewRedisDispatcher(redisClient, cfg.ScanQueue.Key)
	} else {
		log.Warn("Redis unavailable, scan requests will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.OpenRoutes(gctx, backendPort, deps)
	})
	g.Go(func() error {
		return limiter.RunSweeper(gctx, cfg.SweepInterval())
	})
	g.Go(func() error {
		return maintenance.StartResetCleanupRoutine(gctx, redisClient)
	})

	return g.Wait()
}

// connectRedis returns nil when redis is unreachable and not required.
func connectRedis(required bool) *redis.Client {
	client, err := support.GetRedisClient()
	if err != nil {
		if required {
			log.Error("failed to get redis client", "error", err)
		} else {
			log.Warn("redis not reachable", "error", err)
		}
		return nil
	}
	return client
}

func resolveStore(flagValue string) string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("RATE_LIMIT_STORE"))); v != "" {
		return v
	}
	return strings.ToLower(strings.TrimSpace(flagValue))
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port == 0 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
