package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/storybot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/storybot/core/telegram/sender"
	"github.com/m3rciful/storybot/internal/transport"
)

// Outbox implements transport.Outbox over the Bot API. Every call runs
// through the shared limiter.
type Outbox struct {
	bot    *tele.Bot
	sender *tgsender.Limiter
}

var _ transport.Outbox = (*Outbox)(nil)

// NewOutbox binds bot and limiter.
func NewOutbox(bot *tele.Bot, sender *tgsender.Limiter) *Outbox {
	return &Outbox{bot: bot, sender: sender}
}

func markup(kb transport.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, r := range kb {
		row := make([]keyboard.InlineBtn, 0, len(r))
		for _, b := range r {
			row = append(row, keyboard.InlineBtn{Text: b.Text, Data: b.Data, URL: b.URL})
		}
		rows = append(rows, row)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func sendOpts(kb transport.Keyboard) []any {
	if rm := markup(kb); rm != nil {
		return []any{rm}
	}
	return nil
}

func stored(ref transport.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{ChatID: ref.ChatID, MessageID: strconv.Itoa(ref.MessageID)}
}

func refOf(m *tele.Message, fallback transport.MessageRef) transport.MessageRef {
	if m == nil || m.Chat == nil {
		return fallback
	}
	return transport.MessageRef{ChatID: m.Chat.ID, MessageID: m.ID}
}

func (o *Outbox) send(ctx context.Context, action, endpoint string, chatID int64, what any, opts ...any) (transport.MessageRef, error) {
	var m *tele.Message
	err := o.sender.Do(ctx, action, endpoint, func() error {
		var err error
		m, err = o.bot.Send(tele.ChatID(chatID), what, opts...)
		return err
	})
	if err != nil {
		return transport.MessageRef{}, err
	}
	return refOf(m, transport.MessageRef{ChatID: chatID}), nil
}

func (o *Outbox) SendText(ctx context.Context, chatID int64, text string, kb transport.Keyboard) (transport.MessageRef, error) {
	return o.send(ctx, "send.text", "sendMessage", chatID, text, sendOpts(kb)...)
}

func (o *Outbox) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, kb transport.Keyboard) (transport.MessageRef, error) {
	photo := &tele.Photo{File: tele.File{FileID: fileRef}, Caption: caption}
	return o.send(ctx, "send.photo", "sendPhoto", chatID, photo, sendOpts(kb)...)
}

func (o *Outbox) SendMedia(ctx context.Context, chatID int64, kind transport.MediaKind, fileRef, caption string) (transport.MessageRef, error) {
	file := tele.File{FileID: fileRef}
	switch kind {
	case transport.MediaAudio:
		return o.send(ctx, "send.audio", "sendAudio", chatID, &tele.Audio{File: file, Caption: caption})
	case transport.MediaVideo:
		return o.send(ctx, "send.video", "sendVideo", chatID, &tele.Video{File: file, Caption: caption})
	case transport.MediaPhoto:
		return o.send(ctx, "send.photo", "sendPhoto", chatID, &tele.Photo{File: file, Caption: caption})
	default:
		return o.send(ctx, "send.document", "sendDocument", chatID, &tele.Document{File: file, Caption: caption})
	}
}

// EditText treats "message is not modified" as success.
func (o *Outbox) EditText(ctx context.Context, msg transport.MessageRef, text string, kb transport.Keyboard) (transport.MessageRef, error) {
	var m *tele.Message
	err := o.sender.Do(ctx, "edit.text", "editMessageText", func() error {
		var err error
		m, err = o.bot.Edit(stored(msg), text, sendOpts(kb)...)
		if errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		return err
	})
	if err != nil {
		return transport.MessageRef{}, err
	}
	return refOf(m, msg), nil
}

func (o *Outbox) Delete(ctx context.Context, msg transport.MessageRef) error {
	if msg.IsZero() {
		return fmt.Errorf("bot: delete: empty message ref")
	}
	return o.sender.Do(ctx, "delete", "deleteMessage", func() error {
		return o.bot.Delete(stored(msg))
	})
}

func (o *Outbox) Forward(ctx context.Context, chatID int64, msg transport.MessageRef) (transport.MessageRef, error) {
	var m *tele.Message
	err := o.sender.Do(ctx, "forward", "forwardMessage", func() error {
		var err error
		m, err = o.bot.Forward(tele.ChatID(chatID), stored(msg))
		return err
	})
	if err != nil {
		return transport.MessageRef{}, err
	}
	return refOf(m, transport.MessageRef{ChatID: chatID}), nil
}
