package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/telegram/callbacks"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/transport"
)

// show edits the message carrying the pressed button, or sends a new one
// when there is none or it cannot be edited (photo cards).
func show(ev Event, text string, kb transport.Keyboard) Action {
	fresh := Reply(ev.ChatID, text, kb)
	if ev.Origin.IsZero() {
		return fresh
	}
	return Edit(ev.Origin, text, kb).OnFailure(fresh)
}

func (e *Engine) resetCommand(ctx context.Context, ev Event) Result {
	switch ev.Command {
	case "search":
		if ev.Args != "" {
			return e.search(ctx, ev, ev.Args)
		}
		return done(Replace(session.Search{}), Reply(ev.ChatID, txtSearchPrompt, nil))
	case "cancel":
		return done(Clear(), Reply(ev.ChatID, txtCancelled, nil))
	}
	return done(Clear(), Reply(ev.ChatID, txtWelcome, mainMenu()))
}

// callback handles button presses. They never consult the live session;
// the ones that open a flow replace it.
func (e *Engine) callback(ctx context.Context, ev Event) Result {
	tok, err := callbacks.Parse(ev.Data)
	if err != nil {
		return respond(Keep(), StatusInvalid)
	}
	switch tok.Domain {
	case domainStart:
		return done(Clear(), show(ev, txtWelcome, mainMenu()))
	case domainExplore:
		if tok.Arg(0) == "cat" && tok.Arg(1) != "" {
			return e.exploreCategory(ctx, ev, tok.Arg(1))
		}
		return e.explore(ctx, ev)
	case domainSearch:
		return done(Replace(session.Search{}), Reply(ev.ChatID, txtSearchPrompt, nil))
	case domainRequest:
		return done(Replace(session.Request{}), Reply(ev.ChatID, txtRequestPrompt, nil))
	case domainListen, domainView:
		return e.openStory(ctx, ev, tok)
	case domainAdmin:
		return e.adminCallback(ctx, ev, tok)
	case domainFlow:
		return done(Clear(), Reply(ev.ChatID, txtCancelled, nil))
	}
	return respond(Keep(), StatusInvalid)
}

func (e *Engine) explore(ctx context.Context, ev Event) Result {
	cats, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	if len(cats) == 0 {
		return done(Keep(), show(ev, txtNoCategories, transport.Rows(backToMenu())))
	}
	return done(Keep(), show(ev, txtChooseCategory, categoryMenu(cats)))
}

func (e *Engine) exploreCategory(ctx context.Context, ev Event, slug string) Result {
	stories, err := e.catalog.GetStoriesByCategory(ctx, slug, e.opts.CategoryLimit)
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	if len(stories) == 0 {
		return respond(Keep(), StatusNotFound, show(ev, txtEmptyCategory, transport.Rows(transport.Row(transport.Btn(btnBack, token(domainExplore, "open"))))))
	}
	actions := make([]Action, 0, len(stories)+1)
	if !ev.Origin.IsZero() {
		actions = append(actions, Remove(ev.Origin))
	}
	for _, st := range stories {
		actions = append(actions, storyCard(ev.ChatID, st, e.categoryCard(st.VisionID)))
	}
	return done(Keep(), actions...)
}

func (e *Engine) openStory(ctx context.Context, ev Event, tok callbacks.Token) Result {
	st, err := e.catalog.GetStoryByVisionID(ctx, tok.Arg(0))
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	if tok.Domain == domainView {
		return done(Replace(session.EpisodeInput{VisionID: st.VisionID}), Reply(ev.ChatID, txtEpisodePrompt, nil))
	}
	return done(Replace(session.Listen{VisionID: st.VisionID}), Reply(ev.ChatID, txtListenPrompt, nil))
}

func (e *Engine) adminCallback(ctx context.Context, ev Event, tok callbacks.Token) Result {
	if res, denied := e.authorize(ctx, ev, txtNotAuthorized); denied {
		return res
	}
	switch tok.Arg(0) {
	case "cat":
		slug := catalog.NormalizeSlug(tok.Arg(1))
		if slug == "" {
			break
		}
		return done(Keep(), show(ev, fmt.Sprintf(txtAdminOptions, slug), adminMenu(slug, true)))
	case "addnew":
		slug := catalog.NormalizeSlug(tok.Arg(1))
		if slug == "" {
			break
		}
		return done(Replace(session.AdminAdd{Category: slug, Step: session.StageAwaitTitle}),
			Reply(ev.ChatID, txtTitlePrompt, cancelMenu()))
	case "update":
		slug := catalog.NormalizeSlug(tok.Arg(1))
		if slug == "" {
			break
		}
		return done(Replace(session.AdminUpdate{Category: slug}), Reply(ev.ChatID, txtVisionPrompt, cancelMenu()))
	case "addep":
		n, err := tok.Int(2)
		if err != nil || tok.Arg(1) == "" {
			break
		}
		return done(Replace(session.AdminAddEpisode{VisionID: tok.Arg(1), Episode: n}),
			Reply(ev.ChatID, fmt.Sprintf(txtLinkPrompt, n), cancelMenu()))
	case "adderange":
		a, errA := tok.Int(2)
		b, errB := tok.Int(3)
		if errA != nil || errB != nil || tok.Arg(1) == "" {
			break
		}
		r, err := episode.New(a, b)
		if err != nil {
			break
		}
		return done(Replace(session.AdminAddRange{VisionID: tok.Arg(1), Start: r.Start, End: r.End}),
			Reply(ev.ChatID, fmt.Sprintf(txtShortlinkPrompt, r.Start, r.End), cancelMenu()))
	}
	return respond(Keep(), StatusInvalid)
}

// command handles the commands recognized only outside a flow.
func (e *Engine) command(ctx context.Context, ev Event) (Result, bool) {
	switch ev.Command {
	case "ping":
		return done(Keep(), Reply(ev.ChatID, txtPong, nil)), true
	case "addadmin":
		return e.addAdmin(ctx, ev), true
	}
	slug, ok := e.commands[ev.Command]
	if !ok {
		return Result{}, false
	}
	if res, denied := e.authorize(ctx, ev, txtNotAuthorizedCommand); denied {
		return res, true
	}
	return done(Keep(), Reply(ev.ChatID, fmt.Sprintf(txtAdminOptions, slug), adminMenu(slug, false))), true
}

func (e *Engine) addAdmin(ctx context.Context, ev Event) Result {
	if res, denied := e.authorize(ctx, ev, txtNotAuthorizedCommand); denied {
		return res
	}
	id, err := strconv.ParseInt(ev.Args, 10, 64)
	if err != nil || id <= 0 {
		return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtAddAdminUsage, nil))
	}
	if err := e.catalog.GrantAdmin(ctx, id); err != nil {
		return failure(ctx, ev, err, Keep())
	}
	logger.SVCConversation.InfoContext(ctx, "admin granted",
		slog.String("event", "admin.grant"),
		slog.String("status", "ok"),
		slog.Int64("admin_id", id),
	)
	return done(Keep(), Reply(ev.ChatID, fmt.Sprintf(txtAdminGranted, id), nil))
}

// unsolicited relays a message nobody asked for to the admins and
// acknowledges it.
func (e *Engine) unsolicited(ctx context.Context, ev Event) Result {
	if _, err := e.catalog.RecordForward(ctx, catalog.Forward{
		UserID: ev.UserID, ChatID: ev.ChatID, MessageID: ev.MessageID, Text: ev.Text,
	}); err != nil {
		logger.SVCConversation.WarnContext(ctx, "forward audit failed",
			slog.String("event", "forward.record"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
	var actions []Action
	for _, id := range e.catalog.Recipients(ctx) {
		if id == ev.UserID {
			continue
		}
		actions = append(actions, ForwardTo(id, ev.Message()))
	}
	if len(actions) == 0 {
		return done(Keep(), Reply(ev.ChatID, txtUnhandled, nil))
	}
	return done(Keep(), append(actions, Reply(ev.ChatID, txtUnsolicitedAck, nil))...)
}
