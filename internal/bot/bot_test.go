package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tgsender "github.com/m3rciful/storybot/core/telegram/sender"
	"github.com/m3rciful/storybot/internal/conversation"
	"github.com/m3rciful/storybot/internal/transport"
)

type apiCall struct {
	method string
	params map[string]any
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeAPI) last() apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// mediaFields are the message fields telebot reads back after a send.
var mediaFields = map[string]string{
	"sendPhoto":    `,"photo":[{"file_id":"x","file_unique_id":"u","width":1,"height":1}]`,
	"sendAudio":    `,"audio":{"file_id":"x","file_unique_id":"u","duration":1}`,
	"sendVideo":    `,"video":{"file_id":"x","file_unique_id":"u","width":1,"height":1,"duration":1}`,
	"sendDocument": `,"document":{"file_id":"x","file_unique_id":"u"}`,
}

func testBot(t *testing.T) (*tele.Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&params)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		api.mu.Lock()
		api.calls = append(api.calls, apiCall{method: method, params: params})
		api.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1,"chat":{"id":7,"type":"private"}` + mediaFields[method] + `}}`))
	}))
	t.Cleanup(srv.Close)
	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "1:test", Offline: true})
	require.NoError(t, err)
	return b, api
}

func newOutbox(t *testing.T) (*Outbox, *fakeAPI) {
	b, api := testBot(t)
	lim := tgsender.New(tgsender.Options{})
	t.Cleanup(lim.Close)
	return NewOutbox(b, lim), api
}

func TestOutboxSendTextWithKeyboard(t *testing.T) {
	out, api := newOutbox(t)
	kb := transport.Rows(transport.Row(transport.Btn("Listen", "listen:dr01")))

	ref, err := out.SendText(context.Background(), 7, "hello", kb)
	require.NoError(t, err)
	assert.Equal(t, transport.MessageRef{ChatID: 7, MessageID: 42}, ref)

	call := api.last()
	assert.Equal(t, "sendMessage", call.method)
	assert.Equal(t, "hello", call.params["text"])
	assert.Contains(t, call.params["reply_markup"], "listen:dr01")
}

func TestOutboxSendMediaByKind(t *testing.T) {
	out, api := newOutbox(t)
	cases := map[transport.MediaKind]string{
		transport.MediaAudio:    "sendAudio",
		transport.MediaVideo:    "sendVideo",
		transport.MediaPhoto:    "sendPhoto",
		transport.MediaDocument: "sendDocument",
	}
	for kind, method := range cases {
		t.Run(string(kind), func(t *testing.T) {
			ref, err := out.SendMedia(context.Background(), 7, kind, "file-123", "dr01 - Ep1")
			require.NoError(t, err)
			assert.Equal(t, transport.MessageRef{ChatID: 7, MessageID: 42}, ref)
			call := api.last()
			assert.Equal(t, method, call.method)
			assert.Equal(t, "file-123", call.params[string(kind)])
			assert.Equal(t, "dr01 - Ep1", call.params["caption"])
		})
	}
}

func TestOutboxSendPhotoWithKeyboard(t *testing.T) {
	out, api := newOutbox(t)
	kb := transport.Rows(transport.Row(transport.Btn("Listen", "listen:dr01")))

	ref, err := out.SendPhoto(context.Background(), 7, "ph-1", "dr01 - YODDHA", kb)
	require.NoError(t, err)
	assert.Equal(t, transport.MessageRef{ChatID: 7, MessageID: 42}, ref)

	call := api.last()
	assert.Equal(t, "sendPhoto", call.method)
	assert.Equal(t, "ph-1", call.params["photo"])
	assert.Equal(t, "dr01 - YODDHA", call.params["caption"])
	assert.Contains(t, call.params["reply_markup"], "listen:dr01")
}

func TestOutboxEditDeleteForward(t *testing.T) {
	out, api := newOutbox(t)
	ctx := context.Background()
	msg := transport.MessageRef{ChatID: 7, MessageID: 10}

	ref, err := out.EditText(ctx, msg, "menu", nil)
	require.NoError(t, err)
	assert.Equal(t, 42, ref.MessageID)
	assert.Equal(t, "editMessageText", api.last().method)

	require.NoError(t, out.Delete(ctx, msg))
	assert.Equal(t, "deleteMessage", api.last().method)

	_, err = out.Forward(ctx, 99, msg)
	require.NoError(t, err)
	call := api.last()
	assert.Equal(t, "forwardMessage", call.method)
	assert.Equal(t, "99", call.params["chat_id"])

	before := api.count()
	assert.Error(t, out.Delete(ctx, transport.MessageRef{}))
	assert.Equal(t, before, api.count())
}

func TestOutboxClosedLimiter(t *testing.T) {
	b, api := testBot(t)
	lim := tgsender.New(tgsender.Options{})
	lim.Close()
	_, err := NewOutbox(b, lim).SendText(context.Background(), 7, "x", nil)
	assert.ErrorIs(t, err, tgsender.ErrClosed)
	assert.Zero(t, api.count())
}

func TestEventFrom(t *testing.T) {
	b, _ := testBot(t)
	user := &tele.User{ID: 7, Username: "reader"}
	private := &tele.Chat{ID: 7, Type: tele.ChatPrivate}

	cases := []struct {
		name string
		upd  tele.Update
		want conversation.Event
		ok   bool
	}{
		{
			name: "command",
			upd:  tele.Update{Message: &tele.Message{ID: 3, Sender: user, Chat: private, Text: "/search shadow"}},
			want: conversation.Event{Kind: conversation.KindCommand, UserID: 7, ChatID: 7, Username: "reader", MessageID: 3, Text: "/search shadow", Command: "search", Args: "shadow"},
			ok:   true,
		},
		{
			name: "text",
			upd:  tele.Update{Message: &tele.Message{ID: 4, Sender: user, Chat: private, Text: " Ep5 "}},
			want: conversation.Event{Kind: conversation.KindText, UserID: 7, ChatID: 7, Username: "reader", MessageID: 4, Text: "Ep5"},
			ok:   true,
		},
		{
			name: "photo",
			upd: tele.Update{Message: &tele.Message{ID: 5, Sender: user, Chat: private, Caption: "cover",
				Photo: &tele.Photo{File: tele.File{FileID: "ph-big"}}}},
			want: conversation.Event{Kind: conversation.KindPhoto, UserID: 7, ChatID: 7, Username: "reader", MessageID: 5, Text: "cover", PhotoRef: "ph-big"},
			ok:   true,
		},
		{
			name: "document",
			upd: tele.Update{Message: &tele.Message{ID: 6, Sender: user, Chat: private,
				Document: &tele.Document{File: tele.File{FileID: "doc"}}}},
			want: conversation.Event{Kind: conversation.KindMedia, UserID: 7, ChatID: 7, Username: "reader", MessageID: 6},
			ok:   true,
		},
		{
			name: "callback",
			upd: tele.Update{Callback: &tele.Callback{ID: "cb", Sender: user, Data: "explore:cat:drama",
				Message: &tele.Message{ID: 8, Chat: private}}},
			want: conversation.Event{Kind: conversation.KindCallback, UserID: 7, ChatID: 7, Username: "reader", Data: "explore:cat:drama",
				Origin: transport.MessageRef{ChatID: 7, MessageID: 8}},
			ok: true,
		},
		{
			name: "group chat",
			upd:  tele.Update{Message: &tele.Message{ID: 9, Sender: user, Chat: &tele.Chat{ID: -5, Type: tele.ChatGroup}, Text: "hi"}},
		},
		{
			name: "sticker only",
			upd:  tele.Update{Message: &tele.Message{ID: 10, Sender: user, Chat: private}},
		},
		{
			name: "from bot",
			upd:  tele.Update{Message: &tele.Message{ID: 11, Sender: &tele.User{ID: 8, IsBot: true}, Chat: private, Text: "hi"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := EventFrom(b.NewContext(tc.upd))
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

type recordingEngine struct {
	events []conversation.Event
}

func (r *recordingEngine) Handle(_ context.Context, ev conversation.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestHandlerForwardsEvents(t *testing.T) {
	b, _ := testBot(t)
	eng := &recordingEngine{}
	h := Handler(eng)
	user := &tele.User{ID: 7}
	chat := &tele.Chat{ID: 7, Type: tele.ChatPrivate}

	require.NoError(t, h(b.NewContext(tele.Update{ID: 1, Message: &tele.Message{ID: 1, Sender: user, Chat: chat, Text: "/start"}})))
	require.NoError(t, h(b.NewContext(tele.Update{ID: 2, Message: &tele.Message{ID: 2, Sender: user, Chat: chat}})))

	require.Len(t, eng.events, 1)
	assert.Equal(t, "start", eng.events[0].Command)
}

func TestRegistryHidesAdminCommands(t *testing.T) {
	reg := Registry([]string{"drama", "sci-fi"})

	public := reg.ListCommands(true)
	names := make([]string, 0, len(public))
	for _, c := range public {
		names = append(names, c.Text)
	}
	assert.Equal(t, []string{"cancel", "search", "start"}, names)

	key, _, ok := reg.LookupCommand("sci_fi")
	require.True(t, ok)
	assert.Equal(t, "/sci_fi", key)
	_, _, ok = reg.LookupCommand("/menu")
	assert.True(t, ok)

	routes := Routes(reg, func(tele.Context) error { return nil }, nil)
	// 7 commands + 1 alias, 3 message routes, 1 callback route.
	assert.Len(t, routes, 12)
}
