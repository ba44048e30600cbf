package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	tghelpers "github.com/ArtemDzuba/bakery-bot/core/telegram/helpers"
)

// RecoverMiddleware turns a handler panic into an error so the bot keeps serving.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelError, "tg.panic",
					slog.String("err", err.Error()),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
