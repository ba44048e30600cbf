package middleware

import (
	"context"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
)

// Counters tracks what was sent in response to one update.
type Counters struct {
	messages atomic.Int64
	photos   atomic.Int64
	keyboard atomic.Bool
}

type countersKey struct{}

// WithCounters attaches fresh counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the counters stored in ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// CountSent records one outbound message on the counters carried by ctx.
func CountSent(ctx context.Context, photo, keyboard bool) {
	c := CountersFrom(ctx)
	if c == nil {
		return
	}
	c.messages.Add(1)
	if photo {
		c.photos.Add(1)
	}
	if keyboard {
		c.keyboard.Store(true)
	}
}

// Snapshot returns the message count, photo count and whether any keyboard was sent.
func (c *Counters) Snapshot() (messages, photos int64, keyboard bool) {
	if c == nil {
		return 0, 0, false
	}
	return c.messages.Load(), c.photos.Load(), c.keyboard.Load()
}

// MessageMetricsMiddleware attaches per-update counters to the handler context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, _ := WithCounters(tghelpers.BuildContext(c))
		tghelpers.StoreContext(c, ctx)
		return next(c)
	}
}
