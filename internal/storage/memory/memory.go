// Package memory is a process-local backend for development and tests. It
// implements both catalog.Store and session.Backend.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
	"github.com/m3rciful/storybot/internal/session"
)

type storedEpisode struct {
	catalog.Episode
	seq int
}

type storedStory struct {
	catalog.Story
	seq int
}

// Store keeps everything in maps guarded by one RWMutex.
type Store struct {
	mu         sync.RWMutex
	seq        int
	categories map[string]catalog.Category
	stories    map[string]storedStory
	episodes   map[string][]storedEpisode
	sessions   map[int64]session.Record
	registry   catalog.AdminRegistry
	hasOwner   bool
	requests   []catalog.Request
	forwards   []catalog.Forward
}

// New returns an empty store.
func New() *Store {
	return &Store{
		categories: make(map[string]catalog.Category),
		stories:    make(map[string]storedStory),
		episodes:   make(map[string][]storedEpisode),
		sessions:   make(map[int64]session.Record),
	}
}

var (
	_ catalog.Store   = (*Store)(nil)
	_ session.Backend = (*Store)(nil)
)

// UpsertCategory inserts c with a zero counter unless the slug exists.
func (s *Store) UpsertCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.categories[c.Slug]; ok {
		return cur, nil
	}
	c.Counter = 0
	s.categories[c.Slug] = c
	return c, nil
}

// IncrementCategory bumps the counter under the write lock.
func (s *Store) IncrementCategory(_ context.Context, slug string) (catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[slug]
	if !ok {
		c = catalog.Category{Slug: slug, Name: catalog.DisplayName(slug)}
	}
	c.Counter++
	s.categories[slug] = c
	return c, nil
}

func (s *Store) ListCategories(context.Context) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b catalog.Category) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Slug, b.Slug))
	})
	return out, nil
}

func (s *Store) InsertStory(_ context.Context, st catalog.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[st.VisionID]; ok {
		return fmt.Errorf("story %s: %w", st.VisionID, catalog.ErrDuplicate)
	}
	s.seq++
	s.stories[st.VisionID] = storedStory{Story: st, seq: s.seq}
	return nil
}

func (s *Store) StoryByVisionID(_ context.Context, visionID string) (catalog.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stories[visionID]
	if !ok {
		return catalog.Story{}, catalog.ErrNotFound
	}
	return st.Story, nil
}

// SearchStories scores stories by how many query words appear in title or
// description. Ties sort by title.
func (s *Store) SearchStories(_ context.Context, query string, limit int) ([]catalog.Story, error) {
	words := strings.Fields(strings.ToLower(query))
	type hit struct {
		story catalog.Story
		score int
	}
	s.mu.RLock()
	var hits []hit
	for _, st := range s.stories {
		hay := strings.Fields(strings.ToLower(st.Title + " " + st.Description))
		score := 0
		for _, w := range words {
			if slices.Contains(hay, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{story: st.Story, score: score})
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(hits, func(a, b hit) int {
		return cmp.Or(cmp.Compare(b.score, a.score), cmp.Compare(a.story.Title, b.story.Title), cmp.Compare(a.story.VisionID, b.story.VisionID))
	})
	out := make([]catalog.Story, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.story)
	}
	return capStories(out, limit), nil
}

// MatchStories is a case-insensitive substring match ordered by title.
func (s *Store) MatchStories(_ context.Context, query string, limit int) ([]catalog.Story, error) {
	q := strings.ToLower(query)
	s.mu.RLock()
	var out []catalog.Story
	for _, st := range s.stories {
		if strings.Contains(strings.ToLower(st.Title), q) || strings.Contains(strings.ToLower(st.Description), q) {
			out = append(out, st.Story)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b catalog.Story) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.VisionID, b.VisionID))
	})
	return capStories(out, limit), nil
}

// StoriesByCategory lists newest first; equal timestamps keep reverse insertion order.
func (s *Store) StoriesByCategory(_ context.Context, slug string, limit int) ([]catalog.Story, error) {
	s.mu.RLock()
	var rows []storedStory
	for _, st := range s.stories {
		if st.Category == slug {
			rows = append(rows, st)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(rows, func(a, b storedStory) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.seq, a.seq))
	})
	out := make([]catalog.Story, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Story)
	}
	return capStories(out, limit), nil
}

// PutEpisode replaces a record with the same natural key in place.
func (s *Store) PutEpisode(_ context.Context, e catalog.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.episodes[e.VisionID]
	for i, cur := range list {
		if sameKey(cur.Episode, e) {
			list[i].Episode = e
			return nil
		}
	}
	s.seq++
	s.episodes[e.VisionID] = append(list, storedEpisode{Episode: e, seq: s.seq})
	return nil
}

func sameKey(a, b catalog.Episode) bool {
	if a.IsRange != b.IsRange {
		return false
	}
	if a.IsRange {
		return a.Start == b.Start && a.End == b.End
	}
	return a.Number == b.Number
}

func (s *Store) SingleEpisode(_ context.Context, visionID string, number int) (catalog.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.episodes[visionID] {
		if !e.IsRange && e.Number == number {
			return e.Episode, nil
		}
	}
	return catalog.Episode{}, catalog.ErrNotFound
}

// ContainingRange prefers the narrowest span, then the greater start, then
// the record stored first.
func (s *Store) ContainingRange(_ context.Context, visionID string, r episode.Range) (catalog.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  storedEpisode
		found bool
	)
	for _, e := range s.episodes[visionID] {
		if !e.IsRange || !e.Bounds().Contains(r) {
			continue
		}
		if !found || better(e, best) {
			best, found = e, true
		}
	}
	if !found {
		return catalog.Episode{}, catalog.ErrNotFound
	}
	return best.Episode, nil
}

func better(a, b storedEpisode) bool {
	return cmp.Or(
		cmp.Compare(a.Bounds().Span(), b.Bounds().Span()),
		cmp.Compare(b.Start, a.Start),
		cmp.Compare(a.seq, b.seq),
	) < 0
}

func (s *Store) MaxEpisodeNumber(_ context.Context, visionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, e := range s.episodes[visionID] {
		if !e.IsRange && e.Number > highest {
			highest = e.Number
		}
	}
	return highest, nil
}

func (s *Store) AdminRegistry(context.Context) (catalog.AdminRegistry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasOwner && len(s.registry.Admins) == 0 {
		return catalog.AdminRegistry{}, catalog.ErrNotFound
	}
	return catalog.AdminRegistry{OwnerID: s.registry.OwnerID, Admins: slices.Clone(s.registry.Admins)}, nil
}

func (s *Store) GrantAdmin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.registry.Admins, userID) {
		s.registry.Admins = append(s.registry.Admins, userID)
	}
	return nil
}

func (s *Store) SetOwner(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.OwnerID, s.hasOwner = userID, true
	return nil
}

func (s *Store) AppendRequest(_ context.Context, r catalog.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	return nil
}

func (s *Store) AppendForward(_ context.Context, f catalog.Forward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwards = append(s.forwards, f)
	return nil
}

// Requests returns a copy of the request log.
func (s *Store) Requests() []catalog.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.requests)
}

// Forwards returns a copy of the forward log.
func (s *Store) Forwards() []catalog.Forward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.forwards)
}

// StoryCount reports how many stories are stored.
func (s *Store) StoryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stories)
}

// PutSession overwrites the user's record.
func (s *Store) PutSession(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Payload = slices.Clone(rec.Payload)
	s.sessions[rec.UserID] = rec
	return nil
}

// LoadSession purges an expired record lazily.
func (s *Store) LoadSession(_ context.Context, userID int64, notBefore time.Time) (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[userID]
	if !ok {
		return session.Record{}, session.ErrNotFound
	}
	if rec.CreatedAt.Before(notBefore) {
		delete(s.sessions, userID)
		return session.Record{}, session.ErrNotFound
	}
	return rec, nil
}

func (s *Store) DeleteSession(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// SessionCount reports the physically stored sessions, expired ones included.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func capStories(in []catalog.Story, limit int) []catalog.Story {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
