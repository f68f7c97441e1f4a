package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/commands"
	tghelpers "github.com/m3rciful/storybot/core/telegram/helpers"
	"github.com/m3rciful/storybot/core/telegram/router"
	"github.com/m3rciful/storybot/internal/conversation"
)

// Engine handles one event. *conversation.Engine implements it.
type Engine interface {
	Handle(ctx context.Context, ev conversation.Event) error
}

// Registry declares the bot's commands. Category shortcuts are admin-only
// and hidden from the public menu.
func Registry(categories []string) *tg.Registry {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Open the main menu", Aliases: []string{"menu"}})
	reg.RegisterCommand("/search", commands.Command{Description: "Search stories by title"})
	reg.RegisterCommand("/cancel", commands.Command{Description: "Cancel the current action"})
	reg.RegisterCommand("/ping", commands.Command{Description: "Check the bot is alive", Hidden: true})
	reg.RegisterCommand("/addadmin", commands.Command{Description: "Grant admin rights", AdminOnly: true})
	for _, slug := range categories {
		name := conversation.CommandName(slug)
		if name == "" {
			continue
		}
		reg.RegisterCommand("/"+name, commands.Command{Description: "Add to " + slug, AdminOnly: true, Hidden: true})
	}
	return reg
}

// Handler turns telebot updates into engine events.
func Handler(engine Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev, ok := EventFrom(c)
		if !ok {
			logger.TG.DebugContext(tghelpers.Request(c), "update ignored",
				slog.String("event", "tg.update"),
				slog.String("status", "skip"),
			)
			return nil
		}
		return engine.Handle(tghelpers.Request(c), ev)
	}
}

// Routes binds commands, messages and callbacks to handler.
func Routes(reg *tg.Registry, handler tele.HandlerFunc, m *metrics.Metrics) []tg.Route {
	opts := router.Options{Metrics: m}
	routes := router.CommandRoutes(reg, handler, opts)
	routes = append(routes, router.MessageRoutes(handler, opts)...)
	return append(routes, router.CallbackRoute(handler, opts))
}

// OnLimited answers throttled button presses so the client stops spinning.
func OnLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Slow down a little."})
	}
	return nil
}
