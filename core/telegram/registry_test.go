package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "Меню", Aliases: []string{"menu"}})
	reg.RegisterCommand("/debug", Command{Handler: noop, Description: "debug", Hidden: true})

	key, _, ok := reg.LookupCommand("/start")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	key, _, ok = reg.LookupCommand("menu")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	_, _, ok = reg.LookupCommand("🥧 Пироги")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("  ")
	assert.False(t, ok)

	assert.Equal(t, []tele.Command{{Text: "/start", Description: "Меню"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 2)
}

func TestRegistryRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("start", Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/empty", Command{Description: "x"})
	reg.RegisterCommand("/nodesc", Command{Handler: noop})
	assert.Empty(t, reg.Commands())

	reg.RegisterCommand("/start", Command{Handler: noop, Description: "first"})
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "second"})
	assert.Equal(t, "first", reg.Commands()["/start"].Description)
}
