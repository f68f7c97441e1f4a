package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRowsRawData(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "Explore All", Data: "explore:open"}, {Text: "Search", Data: "search:open"}},
		nil,
		[]InlineBtn{{Text: "Site", URL: "https://example.org"}},
	)
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "explore:open", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "search:open", m.InlineKeyboard[0][1].Data)
	assert.Equal(t, "https://example.org", m.InlineKeyboard[1][0].URL)
	assert.Empty(t, m.InlineKeyboard[1][0].Data)
}

func TestInlineButtonsRowsEmpty(t *testing.T) {
	assert.Nil(t, InlineButtonsRows())
	assert.Nil(t, InlineButtonsRows(nil, []InlineBtn{}))
}

func TestChunk(t *testing.T) {
	rows := Chunk([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, rows)
	assert.Len(t, Chunk([]int{1, 2}, 0), 2)
	assert.Empty(t, Chunk([]int(nil), 3))
}
