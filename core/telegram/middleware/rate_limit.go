package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the refill period of one token.
	Interval time.Duration
	// Burst is the bucket size; values below 1 mean 1.
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// Limiter keeps one token bucket per user.
type Limiter struct {
	every rate.Limit
	burst int

	mu    sync.Mutex
	users map[int64]*rate.Limiter
}

// NewLimiter creates a limiter that refills one token per interval.
func NewLimiter(interval time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		every: rate.Every(interval),
		burst: burst,
		users: make(map[int64]*rate.Limiter),
	}
}

// Allow consumes a token of userID's bucket if one is available.
func (l *Limiter) Allow(userID int64) bool {
	return l.AllowAt(userID, time.Now())
}

// AllowAt is Allow evaluated at the given instant.
func (l *Limiter) AllowAt(userID int64, now time.Time) bool {
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

// UpdateKind classifies an update for rate_limit.exclude_updates.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates from users that exhausted their token bucket.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := NewLimiter(opts.Interval, opts.Burst)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}
			if limiter.Allow(user.ID) {
				return next(c)
			}

			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
