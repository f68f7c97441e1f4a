// Package conversation interprets incoming events against the user's session
// and decides the next session state plus the messages to send.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/metrics"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/transport"
)

// Catalog is the content the engine reads and writes. *catalog.Service implements it.
type Catalog interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateStory(ctx context.Context, in catalog.NewStory) (catalog.Story, error)
	GetStoryByVisionID(ctx context.Context, visionID string) (catalog.Story, error)
	SearchStories(ctx context.Context, query string, limit int) ([]catalog.Story, error)
	GetStoriesByCategory(ctx context.Context, slug string, limit int) ([]catalog.Story, error)
	AddEpisode(ctx context.Context, visionID string, spec catalog.EpisodeSpec) (catalog.Episode, error)
	NextEpisodeNumber(ctx context.Context, visionID string) (int, error)
	ResolveEpisode(ctx context.Context, visionID string, r episode.Range) (catalog.Episode, error)
	IsAuthorized(ctx context.Context, userID int64) (bool, error)
	GrantAdmin(ctx context.Context, userID int64) error
	Owner(ctx context.Context) int64
	Recipients(ctx context.Context) []int64
	RecordRequest(ctx context.Context, userID int64, username, text string) (catalog.Request, error)
	RecordForward(ctx context.Context, f catalog.Forward) (catalog.Forward, error)
}

// Sessions is the per-user state store. *session.Store implements it.
type Sessions interface {
	Create(ctx context.Context, userID int64, st session.State) (session.Session, error)
	Get(ctx context.Context, userID int64) (session.Session, bool, error)
	Clear(ctx context.Context, userID int64) error
}

// Deliverer sends an episode payload. *delivery.Scheduler implements it.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, st catalog.Story, ep catalog.Episode) (transport.MessageRef, error)
}

// Episode input syntaxes offered on story cards.
const (
	SyntaxTagged = "tagged"
	SyntaxPlain  = "plain"
)

// Options configures an Engine.
type Options struct {
	// StorageChannelID receives an announcement per new story; 0 disables it.
	StorageChannelID int64
	SearchLimit      int
	CategoryLimit    int
	// EpisodeSyntax picks the button on story cards: "tagged" opens the Ep<n>
	// listen flow, "plain" the numeric episode flow.
	EpisodeSyntax string
	// UppercaseSearch rejects search queries that are not in capitals.
	UppercaseSearch bool
	// Categories lists slugs usable as admin shortcut commands.
	Categories []string
	Metrics    *metrics.Metrics
}

// Engine is the conversation state machine.
type Engine struct {
	catalog  Catalog
	sessions Sessions
	fx       effects
	opts     Options
	commands map[string]string
}

// New wires an engine.
func New(cat Catalog, sessions Sessions, out transport.Outbox, deliverer Deliverer, opts Options) *Engine {
	if opts.EpisodeSyntax != SyntaxPlain {
		opts.EpisodeSyntax = SyntaxTagged
	}
	cmds := make(map[string]string, len(opts.Categories))
	for _, slug := range opts.Categories {
		slug = catalog.NormalizeSlug(slug)
		if slug != "" {
			cmds[CommandName(slug)] = slug
		}
	}
	return &Engine{
		catalog:  cat,
		sessions: sessions,
		fx:       effects{out: out, delivery: deliverer},
		opts:     opts,
		commands: cmds,
	}
}

// CommandName turns a category slug into a valid bot command ("sci-fi" -> "sci_fi").
func CommandName(slug string) string {
	return strings.ReplaceAll(catalog.NormalizeSlug(slug), "-", "_")
}

func isReset(ev Event) bool {
	if ev.Kind != KindCommand {
		return false
	}
	switch ev.Command {
	case "start", "menu", "search", "cancel":
		return true
	}
	return false
}

// Handle processes one event: the session is read once, the handler decides,
// actions run, and the session directive is applied once. The returned error
// reports a session store failure; handler failures are logged and answered
// in chat.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	start := time.Now()
	sess, live, err := e.sessions.Get(ctx, ev.UserID)
	known := err == nil
	if err != nil {
		logger.SVCConversation.WarnContext(ctx, "session read failed",
			slog.String("event", "session.get"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		if !isReset(ev) {
			e.run(ctx, []Action{Reply(ev.ChatID, txtTryAgain, nil)})
			e.opts.Metrics.Transition("", "fail")
			return fmt.Errorf("conversation: read session: %w", err)
		}
		live = false
	}

	var cur session.State
	if live {
		cur = sess.State
		ctx = logger.WithMode(ctx, string(cur.Mode()))
	}

	res := e.dispatch(ctx, ev, cur)
	failed := e.run(ctx, res.Actions)
	applyErr := e.apply(ctx, ev.UserID, cur, known, res.Directive)

	mode, stage := "", ""
	if st := res.Directive.State(); st != nil {
		mode, stage = string(st.Mode()), string(st.Stage())
	} else if cur != nil {
		mode, stage = string(cur.Mode()), string(cur.Stage())
	}
	e.opts.Metrics.Transition(mode, res.Directive.Outcome())

	status := res.Status
	if applyErr != nil {
		status = StatusFail
	}
	logger.SVCConversation.InfoContext(ctx, "event handled",
		slog.String("event", "conversation.handled"),
		slog.String("status", status),
		slog.String("kind", string(ev.Kind)),
		slog.String("mode", mode),
		slog.String("stage", stage),
		slog.String("outcome", res.Directive.Outcome()),
		slog.Int("actions", len(res.Actions)),
		slog.Int("failed_actions", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return applyErr
}

func (e *Engine) apply(ctx context.Context, userID int64, cur session.State, known bool, d Directive) error {
	switch d.kind {
	case directiveReplace:
		if _, err := e.sessions.Create(ctx, userID, d.state); err != nil {
			return fmt.Errorf("conversation: save session: %w", err)
		}
	case directiveClear:
		if known && cur == nil {
			return nil
		}
		if err := e.sessions.Clear(ctx, userID); err != nil {
			return fmt.Errorf("conversation: clear session: %w", err)
		}
	}
	return nil
}

// run executes actions in order and reports how many failed.
func (e *Engine) run(ctx context.Context, actions []Action) int {
	failed := 0
	for _, a := range actions {
		if _, err := a.run(ctx, e.fx); err != nil {
			failed++
			logger.SVCConversation.WarnContext(ctx, "action failed",
				slog.String("event", "conversation.action"),
				slog.String("status", "fail"),
				slog.String("action", a.Name),
				logger.Err(err),
			)
			failed += e.run(ctx, a.Else)
			continue
		}
		failed += e.run(ctx, a.Then)
	}
	return failed
}

func (e *Engine) dispatch(ctx context.Context, ev Event, cur session.State) Result {
	if isReset(ev) {
		return e.resetCommand(ctx, ev)
	}
	if ev.Kind == KindCallback {
		return e.callback(ctx, ev)
	}
	if cur != nil {
		return e.continueFlow(ctx, ev, cur)
	}
	if ev.Kind == KindCommand {
		if res, handled := e.command(ctx, ev); handled {
			return res
		}
	}
	return e.unsolicited(ctx, ev)
}

// authorize is the single admin capability check. It returns handled=true with
// the denial (or failure) result when the user may not proceed.
func (e *Engine) authorize(ctx context.Context, ev Event, denial string) (Result, bool) {
	allowed, err := e.catalog.IsAuthorized(ctx, ev.UserID)
	if err != nil {
		logger.SVCConversation.WarnContext(ctx, "authorization check failed",
			slog.String("event", "conversation.authorize"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return respond(Keep(), StatusFail, Reply(ev.ChatID, txtTryAgain, nil)), true
	}
	if !allowed {
		return respond(Clear(), StatusDenied, Reply(ev.ChatID, denial, nil)), true
	}
	return Result{}, false
}

// failure maps a store error into the reply the user sees.
func failure(ctx context.Context, ev Event, err error, retry Directive) Result {
	switch {
	case errors.Is(err, catalog.ErrDuplicate):
		logger.SVCConversation.ErrorContext(ctx, "unique constraint violated",
			slog.String("event", "conversation.duplicate"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
		return respond(Clear(), StatusFail, Reply(ev.ChatID, txtActionFailed, nil))
	case errors.Is(err, catalog.ErrNotFound):
		return respond(Clear(), StatusNotFound, Reply(ev.ChatID, txtStoryNotFound, nil))
	}
	return respond(retry, StatusFail, Reply(ev.ChatID, txtTryAgain, nil))
}
