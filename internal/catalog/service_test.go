package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
	"github.com/m3rciful/storybot/internal/storage/memory"
)

func newService(t *testing.T, opts catalog.Options) (*catalog.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := catalog.NewService(store, opts)
	require.NoError(t, err)
	return svc, store
}

func TestNextVisionIDSequence(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	_, err := svc.UpsertCategory(ctx, "fantasy", "Fantasy", "")
	require.NoError(t, err)

	first, err := svc.NextVisionID(ctx, "fantasy")
	require.NoError(t, err)
	second, err := svc.NextVisionID(ctx, "fantasy")
	require.NoError(t, err)
	assert.Equal(t, "fa01", first)
	assert.Equal(t, "fa02", second)
}

func TestNextVisionIDPrefixOverrides(t *testing.T) {
	svc, _ := newService(t, catalog.Options{Prefixes: map[string]string{"mystery": "MY"}})
	ctx := context.Background()
	_, err := svc.UpsertCategory(ctx, "sci-fi", "Sci-Fi", "sf")
	require.NoError(t, err)

	id, err := svc.NextVisionID(ctx, "sci-fi")
	require.NoError(t, err)
	assert.Equal(t, "sf01", id)

	id, err = svc.NextVisionID(ctx, "mystery")
	require.NoError(t, err)
	assert.Equal(t, "my01", id)
}

func TestNextVisionIDConcurrent(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	const n = 40

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.NextVisionID(ctx, "fantasy")
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, ids, n)
	for i := 1; i <= n; i++ {
		_, ok := ids[fmt.Sprintf("fa%02d", i)]
		assert.True(t, ok, "missing fa%02d", i)
	}
}

func TestUpsertCategoryKeepsCounter(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	_, err := svc.NextVisionID(ctx, "kids")
	require.NoError(t, err)

	c, err := svc.UpsertCategory(ctx, "Kids", "Children", "")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Counter)
	assert.Equal(t, "kids", c.Slug)
}

func TestCreateStoryRequiresAllFields(t *testing.T) {
	svc, store := newService(t, catalog.Options{})
	ctx := context.Background()
	_, err := svc.CreateStory(ctx, catalog.NewStory{Category: "drama", Title: "YODDHA", PhotoRef: "ph"})
	require.Error(t, err)
	assert.Zero(t, store.StoryCount())

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats, "a rejected story must not consume a vision id")
}

func TestCreateAndGetStory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newService(t, catalog.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	st, err := svc.CreateStory(ctx, catalog.NewStory{
		Category: "drama", Title: " YODDHA ", PhotoRef: "photo-1", Description: "An epic tale", CreatedBy: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "dr01", st.VisionID)
	assert.Equal(t, "YODDHA", st.Title)
	assert.Equal(t, now, st.CreatedAt)

	got, err := svc.GetStoryByVisionID(ctx, "DR01")
	require.NoError(t, err)
	assert.Equal(t, st, got)

	_, err = svc.GetStoryByVisionID(ctx, "zz99")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func seedStories(t *testing.T, svc *catalog.Service, titles ...string) []catalog.Story {
	t.Helper()
	var out []catalog.Story
	for i, title := range titles {
		st, err := svc.CreateStory(context.Background(), catalog.NewStory{
			Category: "drama", Title: title, PhotoRef: "p" + strconv.Itoa(i), Description: "about " + title,
		})
		require.NoError(t, err)
		out = append(out, st)
	}
	return out
}

func TestSearchStories(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	seedStories(t, svc, "YODDHA", "THRONE OF ASH", "SHADOW")

	got, err := svc.SearchStories(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.SearchStories(ctx, "YODDHA", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "YODDHA", got[0].Title)

	// "HAD" is no whole word, so only the substring fallback finds SHADOW.
	got, err = svc.SearchStories(ctx, "HAD", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SHADOW", got[0].Title)

	got, err = svc.SearchStories(ctx, "MISSING", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingSearch struct {
	*memory.Store
}

func (failingSearch) SearchStories(context.Context, string, int) ([]catalog.Story, error) {
	return nil, errors.New("text index missing")
}

func TestSearchFallsBackOnError(t *testing.T) {
	store := failingSearch{memory.New()}
	svc, err := catalog.NewService(store, catalog.Options{})
	require.NoError(t, err)
	seedStories(t, svc, "YODDHA")

	got, err := svc.SearchStories(context.Background(), "yod", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestStoriesByCategoryNewestFirst(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newService(t, catalog.Options{Now: func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}})
	seedStories(t, svc, "A", "B", "C")

	got, err := svc.GetStoriesByCategory(context.Background(), "drama", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Title)
	assert.Equal(t, "B", got[1].Title)
}

func TestAddEpisodeValidation(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	st := seedStories(t, svc, "YODDHA")[0]

	_, err := svc.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Link: "http://x"})
	assert.ErrorIs(t, err, catalog.ErrInvalidEpisode)

	_, err = svc.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Number: 1, Range: &episode.Range{Start: 1, End: 2}, Link: "http://x"})
	assert.ErrorIs(t, err, catalog.ErrInvalidEpisode)

	_, err = svc.AddEpisode(ctx, "nope", catalog.EpisodeSpec{Number: 1, Link: "http://x"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	ep, err := svc.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Number: 2, FileRef: "file-2"})
	require.NoError(t, err)
	assert.Equal(t, catalog.FileDocument, ep.FileType)
}

func TestSingleEpisodeDoesNotSatisfyRange(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	st := seedStories(t, svc, "YODDHA")[0]

	_, err := svc.AddEpisode(ctx, st.VisionID, catalog.EpisodeSpec{Number: 1, Link: "http://x/1"})
	require.NoError(t, err)

	ep, err := svc.FindSingleEpisode(ctx, st.VisionID, 1)
	require.NoError(t, err)
	assert.Equal(t, "http://x/1", ep.Link)

	_, err = svc.FindEpisodeRange(ctx, st.VisionID, 1, 5)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestFindEpisodeRangeContainment(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	vid := seedStories(t, svc, "YODDHA")[0].VisionID

	add := func(a, b int, link string) {
		_, err := svc.AddEpisode(ctx, vid, catalog.EpisodeSpec{Range: &episode.Range{Start: a, End: b}, Link: link})
		require.NoError(t, err)
	}
	add(1, 10, "wide")
	add(1, 50, "wider")
	add(3, 12, "shifted")

	cases := []struct {
		start, end int
		want       string
	}{
		{2, 5, "wide"},
		{4, 6, "shifted"}, // equal span, greater start wins
		{1, 10, "wide"},
		{11, 12, "shifted"},
		{5, 40, "wider"},
		{45, 60, ""},
	}
	for _, tc := range cases {
		ep, err := svc.FindEpisodeRange(ctx, vid, tc.start, tc.end)
		if tc.want == "" {
			assert.ErrorIs(t, err, catalog.ErrNotFound, "%d-%d", tc.start, tc.end)
			continue
		}
		require.NoError(t, err, "%d-%d", tc.start, tc.end)
		assert.Equal(t, tc.want, ep.Link, "%d-%d", tc.start, tc.end)
	}
}

func TestResolveEpisodePolicy(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	vid := seedStories(t, svc, "YODDHA")[0].VisionID

	_, err := svc.AddEpisode(ctx, vid, catalog.EpisodeSpec{Number: 3, Link: "single-3"})
	require.NoError(t, err)
	_, err = svc.AddEpisode(ctx, vid, catalog.EpisodeSpec{Range: &episode.Range{Start: 1, End: 10}, Link: "range"})
	require.NoError(t, err)

	ep, err := svc.ResolveEpisode(ctx, vid, episode.Range{Start: 3, End: 3})
	require.NoError(t, err)
	assert.Equal(t, "single-3", ep.Link)

	ep, err = svc.ResolveEpisode(ctx, vid, episode.Range{Start: 4, End: 4})
	require.NoError(t, err)
	assert.Equal(t, "range", ep.Link)

	ep, err = svc.ResolveEpisode(ctx, vid, episode.Range{Start: 2, End: 4})
	require.NoError(t, err)
	assert.Equal(t, "range", ep.Link)

	_, err = svc.ResolveEpisode(ctx, vid, episode.Range{Start: 8, End: 12})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestNextEpisodeNumber(t *testing.T) {
	svc, _ := newService(t, catalog.Options{})
	ctx := context.Background()
	vid := seedStories(t, svc, "YODDHA")[0].VisionID

	n, err := svc.NextEpisodeNumber(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, num := range []int{1, 2, 5} {
		_, err := svc.AddEpisode(ctx, vid, catalog.EpisodeSpec{Number: num, Link: "http://x"})
		require.NoError(t, err)
	}
	n, err = svc.NextEpisodeNumber(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestIsAuthorized(t *testing.T) {
	svc, _ := newService(t, catalog.Options{OwnerID: 1, AdminIDs: []int64{2}})
	ctx := context.Background()

	for id, want := range map[int64]bool{0: false, 1: true, 2: true, 3: false, 4: false} {
		ok, err := svc.IsAuthorized(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "user %d", id)
	}

	require.NoError(t, svc.GrantAdmin(ctx, 3))
	require.NoError(t, svc.SetOwner(ctx, 4))
	require.NoError(t, svc.SetOwner(ctx, 4))
	for _, id := range []int64{1, 3, 4} {
		ok, err := svc.IsAuthorized(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, "user %d", id)
	}
	assert.Equal(t, int64(4), svc.Owner(ctx))
	assert.Equal(t, []int64{4, 1, 3, 2}, svc.Recipients(ctx))
}

func TestRecordAudit(t *testing.T) {
	svc, store := newService(t, catalog.Options{})
	ctx := context.Background()

	r, err := svc.RecordRequest(ctx, 9, "reader", "please add THRONE")
	require.NoError(t, err)
	assert.Len(t, r.ID, 26)

	f, err := svc.RecordForward(ctx, catalog.Forward{UserID: 9, ChatID: 9, MessageID: 12, Text: "hi"})
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, f.ID)

	assert.Len(t, store.Requests(), 1)
	assert.Len(t, store.Forwards(), 1)
}

func TestDefaultPrefix(t *testing.T) {
	assert.Equal(t, "fa", catalog.DefaultPrefix("Fantasy"))
	assert.Equal(t, "x", catalog.DefaultPrefix("x"))
	assert.Equal(t, "Self-help", catalog.DisplayName("self-help"))
}
