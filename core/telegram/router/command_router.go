package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/ArtemDzuba/bakery-bot/core/logger"
	tg "github.com/ArtemDzuba/bakery-bot/core/telegram"
)

// CommandRoutes binds every registered command and its aliases to a summarised handler.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(reg.Commands()))
	for name, def := range reg.Commands() {
		handlerName := normalizeHandlerName(name)
		h := def.Handler
		wrapped := func(c tele.Context) error {
			return handleWithSummary(c, handlerName, func() error { return h(c) })
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: wrapped})
		for _, alias := range def.Aliases {
			if alias != "" && alias[0] == '/' {
				routes = append(routes, tg.Route{Endpoint: alias, Handler: wrapped})
			}
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("count", len(routes)),
	)
	return routes
}
