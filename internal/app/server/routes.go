package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"scangate/internal/auth"
	"scangate/internal/ratelimit"
	"scangate/internal/scanqueue"
	"scangate/internal/support"
	"scangate/internal/validation"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the HTTP layer needs. Validator and Limiter
// default to the built-in rules when nil.
type Deps struct {
	Limiter           *ratelimit.Limiter
	Validator         *validation.TargetValidator
	Dispatcher        scanqueue.Dispatcher
	TrustProxyHeaders bool
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "RateLimit-Limit, RateLimit-Remaining, RateLimit-Reset, Retry-After")

		// Handle preflight request
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func NewRouter(deps Deps) http.Handler {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NewInMemory()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewTargetValidator()
	}

	clientKey := func(r *http.Request) string {
		return support.ClientIP(r, deps.TrustProxyHeaders)
	}
	generalLimit := deps.Limiter.Middleware(ratelimit.CategoryGeneral, clientKey)
	authLimit := deps.Limiter.Middleware(ratelimit.CategoryAuth, clientKey)
	scanLimit := deps.Limiter.Middleware(ratelimit.CategoryScan, clientKey)
	resetLimit := deps.Limiter.Middleware(ratelimit.CategoryPasswordReset, clientKey)
	targetCheck := requireValidTarget(deps.Validator)

	scans := &scanRoutes{dispatcher: deps.Dispatcher}

	router := http.NewServeMux()
	router.HandleFunc("GET /health", healthCheck)
	router.HandleFunc("GET /version", getVersion)

	router.Handle("POST /register", authLimit(http.HandlerFunc(registerUser)))
	router.Handle("POST /login", authLimit(http.HandlerFunc(loginUser)))
	router.Handle("GET /checkLogin", auth.RequireAuth(http.HandlerFunc(checkLogin)))
	router.Handle("POST /changePassword", auth.RequireAuth(http.HandlerFunc(changePassword)))
	router.Handle("POST /forgotPassword", resetLimit(http.HandlerFunc(forgotPassword)))
	router.Handle("POST /resetPassword", resetLimit(http.HandlerFunc(resetPassword)))

	router.Handle("POST /validateTarget", targetCheck(http.HandlerFunc(validateTarget)))
	router.Handle("POST /scans", auth.RequireAuth(scanLimit(targetCheck(http.HandlerFunc(scans.createScan)))))
	router.Handle("GET /scans", auth.RequireAuth(http.HandlerFunc(scans.listScans)))

	router.Handle("GET /admin/settings", auth.IsAdmin(http.HandlerFunc(getGlobalSettings)))

	log.Debug("Routes opened")

	return enableCORS(generalLimit(router))
}

// OpenRoutes serves the API until ctx is cancelled, then drains in-flight
// requests.
func OpenRoutes(ctx context.Context, port int, deps Deps) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting scangate backend on port :%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return <-errCh
}
