package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeVariants(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	states := []State{
		Search{},
		Request{},
		EpisodeInput{VisionID: "dr01"},
		Listen{VisionID: "dr01"},
		AdminAdd{Category: "drama", Step: StageAwaitDescription, Title: "YODDHA", PhotoRef: "ph"},
		AdminUpdate{Category: "drama"},
		AdminAddEpisode{VisionID: "dr01", Episode: 4},
		AdminAddRange{VisionID: "dr01", Start: 1, End: 10},
	}
	for _, st := range states {
		rec, err := Encode(Session{UserID: 1, State: st, CreatedAt: now})
		require.NoError(t, err)
		assert.Equal(t, st.Mode(), rec.Mode)
		assert.Equal(t, st.Stage(), rec.Stage)

		got, err := Decode(rec)
		require.NoError(t, err)
		assert.Equal(t, st, got.State)
	}
}

func TestAdminAddDefaultsToTitle(t *testing.T) {
	assert.Equal(t, StageAwaitTitle, AdminAdd{}.Stage())
	got, err := Decode(Record{Mode: ModeAdminAdd, Stage: StageAwaitPhoto, Payload: []byte(`{"category":"drama"}`)})
	require.NoError(t, err)
	assert.Equal(t, StageAwaitPhoto, got.State.Stage())
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := Decode(Record{Mode: ModeAdminAddEp, Stage: StageAwaitTitle})
	assert.ErrorIs(t, err, ErrUnknownState)
	_, err = Decode(Record{Mode: ModeListen, Payload: []byte("{")})
	assert.Error(t, err)
	_, err = Encode(Session{})
	assert.Error(t, err)
}

func TestAdminFlag(t *testing.T) {
	assert.True(t, AdminAddRange{}.Admin())
	assert.False(t, Listen{}.Admin())
}
