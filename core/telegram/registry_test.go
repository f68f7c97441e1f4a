package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/storybot/core/telegram/commands"
)

func TestRegistryListAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Description: "Main menu"})
	reg.RegisterCommand("/search", commands.Command{Description: "Search stories", Aliases: []string{"find"}})
	reg.RegisterCommand("/fantasy", commands.Command{Description: "Admin: fantasy", AdminOnly: true})
	reg.RegisterCommand("nodash", commands.Command{Description: "x"})
	reg.RegisterCommand("/start", commands.Command{Description: "dup"})
	reg.RegisterCommand("/empty", commands.Command{})

	visible := reg.ListCommands(true)
	if assert.Len(t, visible, 2) {
		assert.Equal(t, "search", visible[0].Text)
		assert.Equal(t, "start", visible[1].Text)
	}
	assert.Len(t, reg.ListCommands(false), 3)

	key, cmd, ok := reg.LookupCommand("find")
	assert.True(t, ok)
	assert.Equal(t, "/search", key)
	assert.Equal(t, "Search stories", cmd.Description)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}
