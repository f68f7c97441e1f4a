package router

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/commands"
)

func testBot(t *testing.T) (*tele.Bot, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	t.Cleanup(srv.Close)
	b, err := tele.NewBot(tele.Settings{URL: srv.URL, Token: "1:test", Offline: true})
	require.NoError(t, err)
	return b, &calls
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "menu", Aliases: []string{"menu", ""}})
	reg.RegisterCommand("/ping", commands.Command{Description: "pong"})

	routes := CommandRoutes(reg, func(tele.Context) error { return nil }, Options{})
	endpoints := make([]string, 0, len(routes))
	for _, r := range routes {
		endpoints = append(endpoints, r.Endpoint.(string))
	}
	assert.ElementsMatch(t, []string{"/start", "/menu", "/ping"}, endpoints)
	assert.Nil(t, CommandRoutes(nil, nil, Options{}))
}

func TestCallbackRouteAnswersAndDispatches(t *testing.T) {
	b, calls := testBot(t)
	var got string
	route := CallbackRoute(func(c tele.Context) error {
		got = c.Callback().Data
		return nil
	}, Options{})

	upd := tele.Update{ID: 1, Callback: &tele.Callback{ID: "cb1", Sender: &tele.User{ID: 7}, Data: "listen:fa01"}}
	require.NoError(t, route.Handler(b.NewContext(upd)))
	assert.Equal(t, "listen:fa01", got)
	assert.Equal(t, int32(1), calls.Load())

	got = ""
	upd = tele.Update{ID: 2, Callback: &tele.Callback{ID: "cb2", Sender: &tele.User{ID: 7}, Data: ""}}
	require.NoError(t, route.Handler(b.NewContext(upd)))
	assert.Empty(t, got)
}

func TestMessageRoutesEndpoints(t *testing.T) {
	routes := MessageRoutes(func(tele.Context) error { return nil }, Options{})
	require.Len(t, routes, 3)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)
	assert.Equal(t, tele.OnPhoto, routes[1].Endpoint)
	assert.Equal(t, tele.OnMedia, routes[2].Endpoint)
}
