package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMediaKind(t *testing.T) {
	assert.Equal(t, MediaAudio, ParseMediaKind("audio"))
	assert.Equal(t, MediaDocument, ParseMediaKind(""))
	assert.Equal(t, MediaDocument, ParseMediaKind("gif"))
}

func TestRowsSkipsEmpty(t *testing.T) {
	kb := Rows(Row(Btn("a", "x:1")), nil, Row())
	assert.Len(t, kb, 1)
	assert.Nil(t, Rows())
	assert.True(t, MessageRef{ChatID: 1}.IsZero())
}
