// Package transport is the outbound contract the conversation engine and the
// delivery scheduler talk to. internal/bot implements it over telebot.
package transport

import "context"

// MediaKind selects how a file reference is sent.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
	MediaPhoto    MediaKind = "photo"
)

// ParseMediaKind maps a stored file type hint, defaulting to document.
func ParseMediaKind(s string) MediaKind {
	switch MediaKind(s) {
	case MediaAudio, MediaVideo, MediaPhoto:
		return MediaKind(s)
	}
	return MediaDocument
}

// Button is one inline keyboard button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of inline buttons.
type Keyboard [][]Button

// Rows builds a keyboard, skipping empty rows.
func Rows(rows ...[]Button) Keyboard {
	var kb Keyboard
	for _, r := range rows {
		if len(r) > 0 {
			kb = append(kb, r)
		}
	}
	return kb
}

// Row is a convenience for a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Btn is a callback button.
func Btn(text, data string) Button { return Button{Text: text, Data: data} }

// MessageRef identifies a sent message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the ref points nowhere.
func (m MessageRef) IsZero() bool { return m.MessageID == 0 }

// Outbox sends messages on behalf of the bot.
type Outbox interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, fileRef, caption string, kb Keyboard) (MessageRef, error)
	SendMedia(ctx context.Context, chatID int64, kind MediaKind, fileRef, caption string) (MessageRef, error)
	EditText(ctx context.Context, msg MessageRef, text string, kb Keyboard) (MessageRef, error)
	Delete(ctx context.Context, msg MessageRef) error
	// Forward relays msg verbatim to chatID.
	Forward(ctx context.Context, chatID int64, msg MessageRef) (MessageRef, error)
}
