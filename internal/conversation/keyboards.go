package conversation

import (
	"fmt"
	"log/slog"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/core/telegram/callbacks"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/transport"
)

const (
	domainStart   = "start"
	domainExplore = "explore"
	domainSearch  = "search"
	domainRequest = "request"
	domainListen  = "listen"
	domainView    = "view"
	domainAdmin   = "admin"
	domainFlow    = "flow"
)

func token(domain string, args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	tok := callbacks.New(domain, parts...)
	data, err := tok.Encode()
	if err != nil {
		// Config validation keeps slugs encodable; a failure here means a
		// stored vision id is malformed.
		logger.SVCConversation.Warn("callback token rejected",
			slog.String("event", "conversation.token"),
			slog.String("status", "invalid"),
			slog.String("token", tok.Key()),
			logger.Err(err),
		)
		return tok.String()
	}
	return data
}

func mainMenu() transport.Keyboard {
	return transport.Rows(
		transport.Row(
			transport.Btn(btnExplore, token(domainExplore, "open")),
			transport.Btn(btnSearch, token(domainSearch, "open")),
		),
		transport.Row(transport.Btn(btnRequest, token(domainRequest, "open"))),
	)
}

func backToMenu() []transport.Button {
	return transport.Row(transport.Btn(btnBack, token(domainStart, "menu")))
}

func categoryMenu(cats []catalog.Category) transport.Keyboard {
	rows := make([][]transport.Button, 0, len(cats)+1)
	for _, c := range cats {
		label := fmt.Sprintf("%s (%d)", c.Name, c.Counter)
		rows = append(rows, transport.Row(transport.Btn(label, token(domainExplore, "cat", c.Slug))))
	}
	rows = append(rows, backToMenu())
	return transport.Rows(rows...)
}

func (e *Engine) storyButton(vid string) transport.Button {
	if e.opts.EpisodeSyntax == SyntaxPlain {
		return transport.Btn(btnEpisodes, token(domainView, vid))
	}
	return transport.Btn(btnListen, token(domainListen, vid))
}

func (e *Engine) categoryCard(vid string) transport.Keyboard {
	return transport.Rows(transport.Row(e.storyButton(vid), transport.Btn(btnBack, token(domainExplore, "open"))))
}

func (e *Engine) searchCard(vid string) transport.Keyboard {
	return transport.Rows(transport.Row(e.storyButton(vid)), backToMenu())
}

func storyCaption(st catalog.Story) string {
	return fmt.Sprintf("%s - %s\n\n%s", st.VisionID, st.Title, st.Description)
}

// storyCard sends the cover with its caption, or the caption alone when the
// story has no usable photo.
func storyCard(chatID int64, st catalog.Story, kb transport.Keyboard) Action {
	text := Reply(chatID, storyCaption(st), kb)
	if st.PhotoRef == "" {
		return text
	}
	return Photo(chatID, st.PhotoRef, storyCaption(st), kb).OnFailure(text)
}

func adminMenu(slug string, withBack bool) transport.Keyboard {
	actions := transport.Row(
		transport.Btn(btnAddNew, token(domainAdmin, "addnew", slug)),
		transport.Btn(btnUpdateOld, token(domainAdmin, "update", slug)),
	)
	if !withBack {
		return transport.Rows(actions)
	}
	return transport.Rows(actions, backToMenu())
}

// episodeMenu offers the single episode `from` and three ranges starting there.
func episodeMenu(vid string, from int) transport.Keyboard {
	rng := func(span int) transport.Button {
		end := from + span - 1
		return transport.Btn(fmt.Sprintf("+AddEP%d-%d", from, end), token(domainAdmin, "adderange", vid, from, end))
	}
	return transport.Rows(
		transport.Row(transport.Btn(fmt.Sprintf("+AddEP%d", from), token(domainAdmin, "addep", vid, from)), rng(10)),
		transport.Row(rng(50), rng(100)),
	)
}

func nextEpisodeMenu(vid string, next int) transport.Keyboard {
	return transport.Rows(transport.Row(
		transport.Btn(fmt.Sprintf("+AddEP%d", next), token(domainAdmin, "addep", vid, next)),
		transport.Btn(btnBack, token(domainStart, "menu")),
	))
}

func cancelMenu() transport.Keyboard {
	return transport.Rows(transport.Row(transport.Btn(btnCancel, token(domainFlow, "cancel"))))
}
