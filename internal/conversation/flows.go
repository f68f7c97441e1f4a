package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
	"github.com/m3rciful/storybot/internal/session"
)

// continueFlow routes an event to the handler of the live session. Admin
// states re-check authorization on every step.
func (e *Engine) continueFlow(ctx context.Context, ev Event, cur session.State) Result {
	if cur.Admin() {
		if res, denied := e.authorize(ctx, ev, txtNotAuthorized); denied {
			return res
		}
	}
	switch st := cur.(type) {
	case session.Search:
		if ev.Kind != KindText && ev.Kind != KindCommand {
			return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtSearchPrompt, nil))
		}
		return e.search(ctx, ev, ev.Text)
	case session.EpisodeInput:
		r, err := episode.Parse(ev.Text)
		if err != nil || !isText(ev) {
			return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtEpisodeFormat, nil))
		}
		return e.resolve(ctx, ev, st.VisionID, r)
	case session.Listen:
		r, err := episode.ParseTagged(ev.Text)
		if err != nil || !isText(ev) {
			return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtListenFormat, nil))
		}
		return e.resolve(ctx, ev, st.VisionID, r)
	case session.Request:
		return e.request(ctx, ev)
	case session.AdminAdd:
		return e.addStory(ctx, ev, st)
	case session.AdminUpdate:
		return e.updateStory(ctx, ev, st)
	case session.AdminAddEpisode:
		return e.saveLink(ctx, ev, st)
	case session.AdminAddRange:
		return e.saveShortlink(ctx, ev, st)
	}
	return respond(Clear(), StatusInvalid, Reply(ev.ChatID, txtTryAgain, nil))
}

func isText(ev Event) bool {
	return (ev.Kind == KindText || ev.Kind == KindCommand) && ev.Text != ""
}

func (e *Engine) search(ctx context.Context, ev Event, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" || (e.opts.UppercaseSearch && query != strings.ToUpper(query)) {
		return respond(Replace(session.Search{}), StatusInvalid, Reply(ev.ChatID, txtSearchCapitals, nil))
	}
	found, err := e.catalog.SearchStories(ctx, query, e.opts.SearchLimit)
	if err != nil {
		return failure(ctx, ev, err, Replace(session.Search{}))
	}
	if len(found) == 0 {
		return respond(Clear(), StatusNotFound, Reply(ev.ChatID, txtSearchNone, nil))
	}
	actions := make([]Action, 0, len(found))
	for _, st := range found {
		actions = append(actions, storyCard(ev.ChatID, st, e.searchCard(st.VisionID)))
	}
	return done(Clear(), actions...)
}

// resolve delivers the episode or range r of a story. Nothing is sent when
// no single record or containing range exists.
func (e *Engine) resolve(ctx context.Context, ev Event, visionID string, r episode.Range) Result {
	st, err := e.catalog.GetStoryByVisionID(ctx, visionID)
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	ep, err := e.catalog.ResolveEpisode(ctx, st.VisionID, r)
	if errors.Is(err, catalog.ErrNotFound) {
		text := txtRangeNotFound
		if r.Single() {
			text = txtEpisodeNotFound
		}
		return respond(Clear(), StatusNotFound, Reply(ev.ChatID, text, nil))
	}
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	return done(Clear(), DeliverEpisode(ev.ChatID, st, ep).OnFailure(Reply(ev.ChatID, txtTryAgain, nil)))
}

func (e *Engine) request(ctx context.Context, ev Event) Result {
	if !isText(ev) {
		return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtRequestText, nil))
	}
	if _, err := e.catalog.RecordRequest(ctx, ev.UserID, ev.Username, ev.Text); err != nil {
		return failure(ctx, ev, err, Keep())
	}
	owner := e.catalog.Owner(ctx)
	if owner == 0 {
		return respond(Clear(), StatusFail, Reply(ev.ChatID, txtRequestNotSent, nil))
	}
	relay := ForwardTo(owner, ev.Message()).
		OnSuccess(Reply(ev.ChatID, txtRequestSent, nil)).
		OnFailure(Reply(ev.ChatID, txtRequestNotSent, nil))
	return done(Clear(), relay)
}

func (e *Engine) addStory(ctx context.Context, ev Event, st session.AdminAdd) Result {
	switch st.Stage() {
	case session.StageAwaitTitle:
		if !isText(ev) {
			break
		}
		st.Step, st.Title = session.StageAwaitPhoto, ev.Text
		return done(Replace(st), Reply(ev.ChatID, txtPhotoPrompt, cancelMenu()))
	case session.StageAwaitPhoto:
		if ev.Kind != KindPhoto || ev.PhotoRef == "" {
			return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtPhotoPrompt, cancelMenu()))
		}
		st.Step, st.PhotoRef = session.StageAwaitDescription, ev.PhotoRef
		return done(Replace(st), Reply(ev.ChatID, txtDescriptionPrompt, cancelMenu()))
	case session.StageAwaitDescription:
		if !isText(ev) {
			break
		}
		story, err := e.catalog.CreateStory(ctx, catalog.NewStory{
			Category:    st.Category,
			Title:       st.Title,
			Description: ev.Text,
			PhotoRef:    st.PhotoRef,
			CreatedBy:   ev.UserID,
		})
		if err != nil {
			if errors.Is(err, catalog.ErrDuplicate) {
				return failure(ctx, ev, err, Clear())
			}
			return respond(Keep(), StatusFail, Reply(ev.ChatID, txtSaveRetry, nil))
		}
		var actions []Action
		if e.opts.StorageChannelID != 0 {
			actions = append(actions, Photo(e.opts.StorageChannelID, story.PhotoRef, storyCaption(story), nil).
				OnFailure(Reply(ev.ChatID, txtChannelFailed, nil)))
		}
		actions = append(actions, Reply(ev.ChatID, fmt.Sprintf(txtStoryAdded, story.VisionID, story.Title), episodeMenu(story.VisionID, 1)))
		return done(Clear(), actions...)
	}
	return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtFollowSteps, nil))
}

func (e *Engine) updateStory(ctx context.Context, ev Event, st session.AdminUpdate) Result {
	if !isText(ev) {
		return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtVisionPrompt, cancelMenu()))
	}
	vid := strings.ToLower(ev.Text)
	story, err := e.catalog.GetStoryByVisionID(ctx, vid)
	if errors.Is(err, catalog.ErrNotFound) {
		return respond(Keep(), StatusNotFound, Reply(ev.ChatID, fmt.Sprintf(txtVisionUnknown, vid), cancelMenu()))
	}
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	next, err := e.catalog.NextEpisodeNumber(ctx, story.VisionID)
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	text := fmt.Sprintf(txtUpdateOptions, story.VisionID, story.Title, next)
	return done(Clear(), Reply(ev.ChatID, text, episodeMenu(story.VisionID, next)))
}

func validLink(s string) bool {
	lower := strings.ToLower(s)
	return (strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")) && !strings.ContainsAny(s, " \n\t")
}

func (e *Engine) saveLink(ctx context.Context, ev Event, st session.AdminAddEpisode) Result {
	if !isText(ev) || !validLink(ev.Text) {
		return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtLinkInvalid, cancelMenu()))
	}
	_, err := e.catalog.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Number: st.Episode, Link: ev.Text})
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	text := fmt.Sprintf(txtLinkSaved, st.Episode)
	return done(Clear(), Reply(ev.ChatID, text, nextEpisodeMenu(st.VisionID, st.Episode+1)))
}

func (e *Engine) saveShortlink(ctx context.Context, ev Event, st session.AdminAddRange) Result {
	if !isText(ev) {
		return respond(Keep(), StatusInvalid, Reply(ev.ChatID, txtShortlinkEmpty, cancelMenu()))
	}
	r := episode.Range{Start: st.Start, End: st.End}
	_, err := e.catalog.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Range: &r, Link: ev.Text})
	if err != nil {
		return failure(ctx, ev, err, Keep())
	}
	return done(Clear(), Reply(ev.ChatID, fmt.Sprintf(txtShortlinkSaved, st.Start, st.End), nil))
}
