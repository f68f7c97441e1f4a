package conversation

import (
	"context"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/transport"
)

type directiveKind int

const (
	directiveKeep directiveKind = iota
	directiveReplace
	directiveClear
)

// Directive tells the engine what to do with the session after an event.
type Directive struct {
	kind  directiveKind
	state session.State
}

// Keep leaves the session as it was read.
func Keep() Directive { return Directive{kind: directiveKeep} }

// Replace stores st as the user's session.
func Replace(st session.State) Directive { return Directive{kind: directiveReplace, state: st} }

// Clear removes the user's session.
func Clear() Directive { return Directive{kind: directiveClear} }

// State is the replacement state, nil unless the directive replaces.
func (d Directive) State() session.State { return d.state }

// Outcome names the directive for logs and metrics.
func (d Directive) Outcome() string {
	switch d.kind {
	case directiveReplace:
		return "replaced"
	case directiveClear:
		return "cleared"
	}
	return "kept"
}

// Status values of a Result.
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusNotFound = "not_found"
	StatusDenied   = "denied"
	StatusFail     = "fail"
)

// Result is what a handler decided: the session directive and the outbound
// actions, in order.
type Result struct {
	Directive Directive
	Actions   []Action
	Status    string
}

func respond(d Directive, status string, actions ...Action) Result {
	return Result{Directive: d, Status: status, Actions: actions}
}

func done(d Directive, actions ...Action) Result { return respond(d, StatusOK, actions...) }

// Action is one outbound effect. Then runs after it succeeds, Else after it fails.
type Action struct {
	Name string
	Then []Action
	Else []Action
	run  func(ctx context.Context, fx effects) (transport.MessageRef, error)
}

// OnSuccess appends follow-up actions.
func (a Action) OnSuccess(next ...Action) Action {
	a.Then = append(a.Then, next...)
	return a
}

// OnFailure appends fallback actions.
func (a Action) OnFailure(next ...Action) Action {
	a.Else = append(a.Else, next...)
	return a
}

type effects struct {
	out      transport.Outbox
	delivery Deliverer
}

// Reply sends text with an optional keyboard.
func Reply(chatID int64, text string, kb transport.Keyboard) Action {
	return Action{Name: "send_text", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return fx.out.SendText(ctx, chatID, text, kb)
	}}
}

// Photo sends a photo card.
func Photo(chatID int64, fileRef, caption string, kb transport.Keyboard) Action {
	return Action{Name: "send_photo", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return fx.out.SendPhoto(ctx, chatID, fileRef, caption, kb)
	}}
}

// Edit replaces the text and keyboard of msg.
func Edit(msg transport.MessageRef, text string, kb transport.Keyboard) Action {
	return Action{Name: "edit_text", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return fx.out.EditText(ctx, msg, text, kb)
	}}
}

// Remove deletes msg.
func Remove(msg transport.MessageRef) Action {
	return Action{Name: "delete", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return msg, fx.out.Delete(ctx, msg)
	}}
}

// ForwardTo relays msg verbatim to chatID.
func ForwardTo(chatID int64, msg transport.MessageRef) Action {
	return Action{Name: "forward", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return fx.out.Forward(ctx, chatID, msg)
	}}
}

// DeliverEpisode hands ep to the delivery scheduler.
func DeliverEpisode(chatID int64, st catalog.Story, ep catalog.Episode) Action {
	return Action{Name: "deliver", run: func(ctx context.Context, fx effects) (transport.MessageRef, error) {
		return fx.delivery.Deliver(ctx, chatID, st, ep)
	}}
}
