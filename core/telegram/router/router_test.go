package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	tg "github.com/ArtemDzuba/bakery-bot/core/telegram"
	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
)

func textContext(t *testing.T, text string) tele.Context {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return bot.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: 10},
			Chat:   &tele.Chat{ID: 10},
		},
	})
}

type codedErr struct{}

func (codedErr) Error() string { return "store down" }
func (codedErr) Code() string  { return "store unavailable" }

func TestTextRoutesPrefersCommands(t *testing.T) {
	var calls []string
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", tg.Command{
		Description: "Меню",
		Handler: func(tele.Context) error {
			calls = append(calls, "start")
			return nil
		},
	})
	reg.SetTextFallback(func(c tele.Context) error {
		calls = append(calls, "fallback:"+c.Text())
		return nil
	})

	routes := TextRoutes(reg, TextOptions{})
	require.Len(t, routes, 1)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)

	require.NoError(t, routes[0].Handler(textContext(t, "start")))
	require.NoError(t, routes[0].Handler(textContext(t, "🎂 Торты")))
	assert.Equal(t, []string{"start", "fallback:🎂 Торты"}, calls)
}

func TestTextRoutesRecordsHandlerAndError(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	reg.SetTextFallback(func(tele.Context) error { return boom })

	c := textContext(t, "hello")
	err := TextRoutes(reg, TextOptions{})[0].Handler(c)
	require.ErrorIs(t, err, boom)

	ctx, ok := tghelpers.ContextFrom(c)
	require.True(t, ok)
	assert.Equal(t, "text", logger.HandlerFrom(ctx))
}

func TestCommandRoutesIncludeSlashAliases(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", tg.Command{
		Description: "Меню",
		Aliases:     []string{"/menu", "menu"},
		Handler:     func(tele.Context) error { return nil },
	})
	routes := CommandRoutes(reg)
	var endpoints []any
	for _, r := range routes {
		endpoints = append(endpoints, r.Endpoint)
	}
	assert.ElementsMatch(t, []any{"/start", "/menu"}, endpoints)
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "STORE_UNAVAILABLE", deriveErrorCode(codedErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
}
