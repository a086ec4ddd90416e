package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

const deniedLabel = "Too many requests"

type KeyFunc func(r *http.Request) string

type deniedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware admits requests for one category. Responses carry the standard
// RateLimit-* headers; the legacy X-RateLimit-* set is never written.
func (l *Limiter) Middleware(category Category, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := UnknownClientKey
			if key != nil {
				clientKey = key(r)
			}

			decision, err := l.Admit(r.Context(), category, clientKey)
			if err != nil {
				log.Error("rate limit misconfigured", "category", category, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			writeHeaders(w, decision, l.now())

			if !decision.Allowed {
				log.Warn("rate limit exceeded", "category", category, "key", clientKey, "path", r.URL.Path)
				retryAfter := int(decision.RetryAfter / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(deniedResponse{
					Error:      deniedLabel,
					Message:    decision.Message,
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeHeaders(w http.ResponseWriter, d Decision, now time.Time) {
	reset := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if reset < 0 {
		reset = 0
	}

	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("RateLimit-Reset", strconv.Itoa(reset))
}
