package conversation

import (
	"strings"

	"github.com/m3rciful/storybot/internal/transport"
)

// Kind classifies an incoming event.
type Kind string

const (
	KindCommand  Kind = "command"
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindMedia    Kind = "media"
	KindCallback Kind = "callback"
)

// Event is one incoming update reduced to what the engine needs.
type Event struct {
	Kind      Kind
	UserID    int64
	ChatID    int64
	Username  string
	MessageID int

	// Text is the message text or media caption.
	Text string
	// Command is the lowercased name without "/" or "@bot"; Args is the rest.
	Command string
	Args    string
	// PhotoRef is the file id of the largest photo size.
	PhotoRef string
	// Data is the raw callback payload; Origin the message carrying the button.
	Data   string
	Origin transport.MessageRef
}

// Message is the ref of the event's own message.
func (e Event) Message() transport.MessageRef {
	return transport.MessageRef{ChatID: e.ChatID, MessageID: e.MessageID}
}

// TextEvent builds a text or command event from a message text.
func TextEvent(userID, chatID int64, messageID int, text string) Event {
	ev := Event{Kind: KindText, UserID: userID, ChatID: chatID, MessageID: messageID, Text: strings.TrimSpace(text)}
	if name, args, ok := ParseCommand(ev.Text); ok {
		ev.Kind, ev.Command, ev.Args = KindCommand, name, args
	}
	return ev
}

// ParseCommand splits "/Start@storybot arg" into ("start", "arg").
func ParseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
