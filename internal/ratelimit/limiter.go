package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryAuth          Category = "auth"
	CategoryScan          Category = "scan"
	CategoryPasswordReset Category = "password_reset"
)

// UnknownClientKey is used when the caller identity cannot be determined.
const UnknownClientKey = "unknown"

var ErrUnknownCategory = errors.New("ratelimit: unknown category")

type Policy struct {
	Window  time.Duration
	Max     int
	Message string
}

// RetryAfterSeconds is the fixed value reported on denial for this policy.
func (p Policy) RetryAfterSeconds() int {
	return int(p.Window / time.Second)
}

// DefaultPolicies counts every auth attempt, successful or not, so credential
// stuffing is throttled even when some guesses land.
func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		CategoryGeneral: {
			Window:  15 * time.Minute,
			Max:     100,
			Message: "Too many requests from this IP, please try again later.",
		},
		CategoryAuth: {
			Window:  15 * time.Minute,
			Max:     10,
			Message: "Too many authentication attempts, please try again later.",
		},
		CategoryScan: {
			Window:  60 * time.Minute,
			Max:     20,
			Message: "Scan limit reached, please wait before starting more scans.",
		},
		CategoryPasswordReset: {
			Window:  60 * time.Minute,
			Max:     5,
			Message: "Too many password reset requests, please try again later.",
		},
	}
}

// Window is the state of one client key inside one category.
type Window struct {
	Count int
	Start time.Time
}

// Store records hits. Hit must be an atomic check-and-increment for key:
// start a new window when none is live, otherwise increment the count while
// it is still <= limit so repeated denials do not grow it further.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Window, error)
}

// Sweeper is implemented by stores that need expired windows reclaimed.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Decision struct {
	Category   Category
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Message    string
}

type Limiter struct {
	policies map[Category]Policy
	stores   map[Category]Store
	now      func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPolicy overrides a single category.
func WithPolicy(category Category, policy Policy) Option {
	return func(l *Limiter) {
		l.policies[category] = policy
	}
}

// New builds a limiter with one independent store per category.
func New(newStore func(Category) Store, opts ...Option) *Limiter {
	l := &Limiter{
		policies: DefaultPolicies(),
		stores:   make(map[Category]Store),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	for category := range l.policies {
		l.stores[category] = newStore(category)
	}
	return l
}

// NewInMemory is the single-instance setup.
func NewInMemory(opts ...Option) *Limiter {
	return New(func(Category) Store { return NewMemoryStore() }, opts...)
}

func (l *Limiter) Policy(category Category) (Policy, bool) {
	p, ok := l.policies[category]
	return p, ok
}

// Admit counts one request for clientKey in category. Store failures admit
// the request and are logged.
func (l *Limiter) Admit(ctx context.Context, category Category, clientKey string) (Decision, error) {
	return l.AdmitAt(ctx, category, clientKey, l.now())
}

func (l *Limiter) AdmitAt(ctx context.Context, category Category, clientKey string, now time.Time) (Decision, error) {
	policy, ok := l.policies[category]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	key := strings.TrimSpace(clientKey)
	if key == "" {
		key = UnknownClientKey
	}

	decision := Decision{
		Category: category,
		Allowed:  true,
		Limit:    policy.Max,
		Message:  policy.Message,
	}

	win, err := l.stores[category].Hit(ctx, key, policy.Max, policy.Window, now)
	if err != nil {
		log.Error("rate limit store failed, admitting request", "category", category, "key", key, "error", err)
		decision.Remaining = policy.Max
		decision.ResetAt = now.Add(policy.Window)
		return decision, nil
	}

	decision.ResetAt = win.Start.Add(policy.Window)
	decision.Remaining = max(policy.Max-win.Count, 0)
	if win.Count > policy.Max {
		decision.Allowed = false
		decision.RetryAfter = policy.Window
	}
	return decision, nil
}

// RunSweeper reclaims expired windows until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0
	for category, store := range l.stores {
		sweeper, ok := store.(Sweeper)
		if !ok {
			continue
		}
		if n := sweeper.Sweep(now); n > 0 {
			log.Debug("rate limit windows reclaimed", "category", category, "count", n)
			removed += n
		}
	}
	return removed
}
