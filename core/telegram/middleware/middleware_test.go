package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
)

func messageContext(t *testing.T, userID int64, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{
		ID: int(userID),
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		},
	})
}

func TestLimiterBurstAndRefill(t *testing.T) {
	l := NewLimiter(time.Second, 2)
	now := time.Now()
	assert.True(t, l.AllowAt(1, now))
	assert.True(t, l.AllowAt(1, now))
	assert.False(t, l.AllowAt(1, now))
	assert.True(t, l.AllowAt(2, now), "buckets are per user")
	assert.True(t, l.AllowAt(1, now.Add(time.Second)))
}

func TestRateLimitMiddleware(t *testing.T) {
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Burst:    1,
		OnLimited: func(tele.Context) error {
			limited++
			return nil
		},
	})
	h := mw(func(tele.Context) error {
		handled++
		return nil
	})

	require.NoError(t, h(messageContext(t, 7, "привет")))
	require.NoError(t, h(messageContext(t, 7, "привет")))
	require.NoError(t, h(messageContext(t, 8, "привет")))
	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)
}

func TestRateLimitMiddlewareExclusions(t *testing.T) {
	var handled int
	h := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"message": {}},
	})(func(tele.Context) error {
		handled++
		return nil
	})
	for i := 0; i < 3; i++ {
		require.NoError(t, h(messageContext(t, 7, "меню")))
	}
	assert.Equal(t, 3, handled)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("oops") })
	err := h(messageContext(t, 1, "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestMetricsCounters(t *testing.T) {
	c := messageContext(t, 3, "🥧 Пироги")
	chain := LoggerMiddleware(MessageMetricsMiddleware(func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		CountSent(ctx, false, true)
		CountSent(ctx, true, false)
		return nil
	}))
	require.NoError(t, chain(c))

	msgs, photos, kb := CountersFrom(tghelpers.BuildContext(c)).Snapshot()
	assert.Equal(t, int64(2), msgs)
	assert.Equal(t, int64(1), photos)
	assert.True(t, kb)

	// no counters attached: counting is a no-op
	CountSent(context.Background(), true, true)
	var nilCounters *Counters
	msgs, _, _ = nilCounters.Snapshot()
	assert.Zero(t, msgs)
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, "message", UpdateKind(tele.Update{Message: &tele.Message{}}))
	assert.Equal(t, "callback", UpdateKind(tele.Update{Callback: &tele.Callback{}}))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}
