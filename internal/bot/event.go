// Package bot adapts telebot to the conversation engine: updates become
// events, and the engine's outbox is served by the bot API.
package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/internal/conversation"
	"github.com/m3rciful/storybot/internal/transport"
)

// EventFrom reduces an update to an engine event. Updates the engine has
// no use for (group chats, service messages, stickers) report false.
func EventFrom(c tele.Context) (conversation.Event, bool) {
	user := c.Sender()
	if user == nil || user.IsBot {
		return conversation.Event{}, false
	}
	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		return conversation.Event{}, false
	}

	if cb := c.Callback(); cb != nil {
		ev := conversation.Event{
			Kind:     conversation.KindCallback,
			UserID:   user.ID,
			ChatID:   user.ID,
			Username: user.Username,
			Data:     cb.Data,
		}
		if m := cb.Message; m != nil && m.Chat != nil {
			ev.ChatID = m.Chat.ID
			ev.Origin = transport.MessageRef{ChatID: m.Chat.ID, MessageID: m.ID}
		}
		return ev, true
	}

	msg := c.Message()
	if msg == nil || msg.Chat == nil {
		return conversation.Event{}, false
	}
	base := conversation.Event{
		UserID:    user.ID,
		ChatID:    msg.Chat.ID,
		Username:  user.Username,
		MessageID: msg.ID,
		Text:      msg.Caption,
	}
	switch {
	case msg.Photo != nil:
		base.Kind = conversation.KindPhoto
		base.PhotoRef = msg.Photo.FileID
		return base, true
	case msg.Document != nil, msg.Audio != nil, msg.Video != nil, msg.Voice != nil, msg.Animation != nil:
		base.Kind = conversation.KindMedia
		return base, true
	case msg.Text != "":
		ev := conversation.TextEvent(user.ID, msg.Chat.ID, msg.ID, msg.Text)
		ev.Username = user.Username
		return ev, true
	}
	return conversation.Event{}, false
}
