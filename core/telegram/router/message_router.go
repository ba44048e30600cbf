package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/ArtemDzuba/bakery-bot/core/telegram"
)

// TextOptions controls fallback behaviour for text routing.
type TextOptions struct {
	// UnknownText handles text when the registry has no fallback.
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text updates. Text that names a
// registered command goes to that command, everything else to the registry
// text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
			return handleWithSummary(c, normalizeHandlerName(key), func() error {
				return cmd.Handler(c)
			})
		}

		fallback := opts.UnknownText
		if reg != nil && reg.TextFallback() != nil {
			fallback = reg.TextFallback()
		}
		if fallback == nil {
			return handleWithSummary(c, "unknown_text", func() error { return nil })
		}
		return handleWithSummary(c, "text", func() error { return fallback(c) })
	}

	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
