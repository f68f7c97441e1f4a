package telegram

import (
	"net"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/storybot/core/config"
)

const defaultLongPollSeconds = 10

// AllowedUpdates is what the bot subscribes to; everything else is filtered
// out by Telegram before it reaches us.
var AllowedUpdates = []string{"message", "callback_query"}

// longPollTimeout applies the default to a zero or negative setting.
func longPollTimeout(cfg *coreconfig.Config) time.Duration {
	if s := cfg.Telegram.LongPollTimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultLongPollSeconds * time.Second
}

// NewPoller picks a webhook listener or a long poller from cfg.RunMode.
// Normalize has already validated the mode and webhook fields.
func NewPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg), AllowedUpdates: AllowedUpdates}
}
