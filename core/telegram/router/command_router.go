package router

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
	tg "github.com/m3rciful/storybot/core/telegram"
)

// CommandRoutes binds every registered command (and alias) to handler,
// logging a summary named after the command.
func CommandRoutes(reg *tg.Registry, handler tele.HandlerFunc, opts Options) []tg.Route {
	if reg == nil || handler == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		h := func(c tele.Context) error {
			return handleWithSummary(c, opts, name, func() error { return handler(c) })
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "commands"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
	)
	return routes
}
