package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
)

func newContext(text string) tele.Context {
	bot, _ := tele.NewBot(tele.Settings{Offline: true})
	return bot.NewContext(tele.Update{
		ID: 77,
		Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: 5, FirstName: "Аня"},
			Chat:   &tele.Chat{ID: 9, Type: tele.ChatPrivate},
		},
	})
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newContext("привет")
	ctx := BuildContext(c)

	assert.Equal(t, "77:9:5", logger.RIDFrom(ctx))
	assert.Equal(t, 77, logger.UpdateIDFrom(ctx))
	assert.Equal(t, int64(5), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(9), logger.ChatIDFrom(ctx))

	again := BuildContext(c)
	assert.Equal(t, ctx, again)
}

func TestWithHandlerUpdatesStoredContext(t *testing.T) {
	c := newContext("🥧 Пироги")
	WithHandler(c, "chat")

	ctx, ok := ContextFrom(c)
	assert.True(t, ok)
	assert.Equal(t, "chat", logger.HandlerFrom(ctx))
	assert.Equal(t, "77:9:5", logger.RIDFrom(ctx))
}
