package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/episode"
)

const (
	defaultSearchLimit   = 7
	defaultCategoryLimit = 50
	defaultCacheSize     = 256
)

// Options configures a Service.
type Options struct {
	// OwnerID and AdminIDs come from configuration and are always authorized
	// in addition to the stored registry.
	OwnerID  int64
	AdminIDs []int64
	// Prefixes overrides the vision id prefix per category slug.
	Prefixes      map[string]string
	SearchLimit   int
	CategoryLimit int
	CacheSize     int
	Now           func() time.Time
}

// Service implements the content operations on top of a Store.
type Service struct {
	store   Store
	opts    Options
	stories *lru.Cache[string, Story]
}

// NewService wraps store.
func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: nil store")
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.CategoryLimit <= 0 {
		opts.CategoryLimit = defaultCategoryLimit
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cache, err := lru.New[string, Story](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: story cache: %w", err)
	}
	return &Service{store: store, opts: opts, stories: cache}, nil
}

// UpsertCategory creates the category with a zero counter if absent. Name
// and prefix of an existing category are left untouched.
func (s *Service) UpsertCategory(ctx context.Context, slug, name, prefix string) (Category, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return Category{}, fmt.Errorf("catalog: empty category slug")
	}
	if strings.TrimSpace(name) == "" {
		name = DisplayName(slug)
	}
	c, err := s.store.UpsertCategory(ctx, Category{Slug: slug, Name: name, Prefix: strings.ToLower(prefix)})
	if err != nil {
		return Category{}, fmt.Errorf("catalog: upsert category %s: %w", slug, err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	return cats, nil
}

// NextVisionID atomically increments the category counter and renders
// prefix + zero-padded counter, e.g. "fa01".
func (s *Service) NextVisionID(ctx context.Context, slug string) (string, error) {
	slug = NormalizeSlug(slug)
	c, err := s.store.IncrementCategory(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("catalog: increment %s: %w", slug, err)
	}
	return fmt.Sprintf("%s%02d", s.prefix(c), c.Counter), nil
}

func (s *Service) prefix(c Category) string {
	if c.Prefix != "" {
		return c.Prefix
	}
	if p := s.opts.Prefixes[c.Slug]; p != "" {
		return strings.ToLower(p)
	}
	return DefaultPrefix(c.Slug)
}

// NewStory carries the fields collected by the admin flow.
type NewStory struct {
	Category    string
	Title       string
	Description string
	PhotoRef    string
	CreatedBy   int64
}

// CreateStory mints a vision id and writes the story in one insert.
func (s *Service) CreateStory(ctx context.Context, in NewStory) (Story, error) {
	if strings.TrimSpace(in.Title) == "" || in.PhotoRef == "" || strings.TrimSpace(in.Description) == "" {
		return Story{}, fmt.Errorf("catalog: story needs title, photo and description")
	}
	vid, err := s.NextVisionID(ctx, in.Category)
	if err != nil {
		return Story{}, err
	}
	st := Story{
		VisionID:    vid,
		Category:    NormalizeSlug(in.Category),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		PhotoRef:    in.PhotoRef,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   s.opts.Now().UTC(),
	}
	if err := s.store.InsertStory(ctx, st); err != nil {
		logger.SVCCatalog.ErrorContext(ctx, "story insert failed",
			slog.String("event", "story.create"),
			slog.String("status", "fail"),
			slog.String("vision_id", vid),
			logger.Err(err),
		)
		return Story{}, fmt.Errorf("catalog: insert story %s: %w", vid, err)
	}
	s.stories.Add(vid, st)
	logger.SVCCatalog.InfoContext(ctx, "story created",
		slog.String("event", "story.create"),
		slog.String("status", "ok"),
		slog.String("vision_id", vid),
		slog.String("category", st.Category),
	)
	return st, nil
}

// GetStoryByVisionID returns the story or ErrNotFound.
func (s *Service) GetStoryByVisionID(ctx context.Context, visionID string) (Story, error) {
	visionID = strings.ToLower(strings.TrimSpace(visionID))
	if visionID == "" {
		return Story{}, ErrNotFound
	}
	if st, ok := s.stories.Get(visionID); ok {
		return st, nil
	}
	st, err := s.store.StoryByVisionID(ctx, visionID)
	if err != nil {
		return Story{}, err
	}
	s.stories.Add(visionID, st)
	return st, nil
}

// SearchStories runs full-text search and falls back to substring matching
// when it fails or finds nothing. An empty query returns nothing.
func (s *Service) SearchStories(ctx context.Context, query string, limit int) ([]Story, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	found, err := s.store.SearchStories(ctx, query, limit)
	if err == nil && len(found) > 0 {
		return found, nil
	}
	if err != nil {
		logger.SVCCatalog.WarnContext(ctx, "text search failed, using substring match",
			slog.String("event", "story.search"),
			slog.String("status", "fail"),
			logger.Err(err),
		)
	}
	found, err = s.store.MatchStories(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search %q: %w", query, err)
	}
	return found, nil
}

// GetStoriesByCategory lists the newest stories of a category.
func (s *Service) GetStoriesByCategory(ctx context.Context, slug string, limit int) ([]Story, error) {
	if limit <= 0 {
		limit = s.opts.CategoryLimit
	}
	out, err := s.store.StoriesByCategory(ctx, NormalizeSlug(slug), limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: stories of %s: %w", slug, err)
	}
	return out, nil
}

// AddEpisode stores a single-episode or range record for an existing story.
func (s *Service) AddEpisode(ctx context.Context, visionID string, spec EpisodeSpec) (Episode, error) {
	if (spec.Number > 0) == (spec.Range != nil) {
		return Episode{}, ErrInvalidEpisode
	}
	st, err := s.GetStoryByVisionID(ctx, visionID)
	if err != nil {
		return Episode{}, err
	}
	ep := Episode{
		VisionID: st.VisionID,
		Link:     strings.TrimSpace(spec.Link),
		FileRef:  spec.FileRef,
		FileType: spec.FileType,
		Caption:  spec.Caption,
		AddedAt:  s.opts.Now().UTC(),
	}
	if ep.Link == "" && ep.FileRef == "" {
		return Episode{}, fmt.Errorf("catalog: episode needs a link or a file")
	}
	if ep.FileRef != "" && ep.FileType == "" {
		ep.FileType = FileDocument
	}
	if spec.Range != nil {
		r, err := episode.New(spec.Range.Start, spec.Range.End)
		if err != nil {
			return Episode{}, ErrInvalidEpisode
		}
		ep.IsRange, ep.Start, ep.End = true, r.Start, r.End
	} else {
		ep.Number = spec.Number
	}
	if err := s.store.PutEpisode(ctx, ep); err != nil {
		return Episode{}, fmt.Errorf("catalog: put episode %s %s: %w", st.VisionID, ep.Bounds(), err)
	}
	logger.SVCCatalog.InfoContext(ctx, "episode saved",
		slog.String("event", "episode.put"),
		slog.String("status", "ok"),
		slog.String("vision_id", st.VisionID),
		slog.String("episode", ep.Bounds().String()),
	)
	return ep, nil
}

// FindSingleEpisode returns the exact single-episode record or ErrNotFound.
func (s *Service) FindSingleEpisode(ctx context.Context, visionID string, number int) (Episode, error) {
	if number <= 0 {
		return Episode{}, ErrNotFound
	}
	return s.store.SingleEpisode(ctx, strings.ToLower(visionID), number)
}

// FindEpisodeRange returns a range record fully containing start..end.
func (s *Service) FindEpisodeRange(ctx context.Context, visionID string, start, end int) (Episode, error) {
	r, err := episode.New(start, end)
	if err != nil {
		return Episode{}, ErrNotFound
	}
	return s.store.ContainingRange(ctx, strings.ToLower(visionID), r)
}

// NextEpisodeNumber is one past the highest single episode stored.
func (s *Service) NextEpisodeNumber(ctx context.Context, visionID string) (int, error) {
	n, err := s.store.MaxEpisodeNumber(ctx, strings.ToLower(visionID))
	if err != nil {
		return 0, fmt.Errorf("catalog: max episode %s: %w", visionID, err)
	}
	return n + 1, nil
}

// ResolveEpisode finds what to deliver for r: the exact single episode when
// r names one, otherwise (or when missing) a containing range record.
// Nothing is ever delivered partially.
func (s *Service) ResolveEpisode(ctx context.Context, visionID string, r episode.Range) (Episode, error) {
	if r.Single() {
		ep, err := s.FindSingleEpisode(ctx, visionID, r.Start)
		if err == nil {
			return ep, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Episode{}, err
		}
	}
	return s.FindEpisodeRange(ctx, visionID, r.Start, r.End)
}

// IsAuthorized reports whether user is the owner or an admin.
func (s *Service) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	if userID == s.opts.OwnerID || slices.Contains(s.opts.AdminIDs, userID) {
		return true, nil
	}
	reg, err := s.store.AdminRegistry(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("catalog: admin registry: %w", err)
	}
	return reg.OwnerID == userID || slices.Contains(reg.Admins, userID), nil
}

// Owner returns the stored owner, falling back to the configured one.
func (s *Service) Owner(ctx context.Context) int64 {
	reg, err := s.store.AdminRegistry(ctx)
	if err == nil && reg.OwnerID != 0 {
		return reg.OwnerID
	}
	return s.opts.OwnerID
}

// Recipients lists owner and admins, deduplicated, owner first.
func (s *Service) Recipients(ctx context.Context) []int64 {
	var out []int64
	add := func(id int64) {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	add(s.Owner(ctx))
	add(s.opts.OwnerID)
	if reg, err := s.store.AdminRegistry(ctx); err == nil {
		for _, id := range reg.Admins {
			add(id)
		}
	}
	for _, id := range s.opts.AdminIDs {
		add(id)
	}
	return out
}

// GrantAdmin adds user to the admin set.
func (s *Service) GrantAdmin(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("catalog: invalid admin id")
	}
	if err := s.store.GrantAdmin(ctx, userID); err != nil {
		return fmt.Errorf("catalog: grant admin %d: %w", userID, err)
	}
	return nil
}

// SetOwner replaces the owner.
func (s *Service) SetOwner(ctx context.Context, userID int64) error {
	if userID == 0 {
		return fmt.Errorf("catalog: invalid owner id")
	}
	if err := s.store.SetOwner(ctx, userID); err != nil {
		return fmt.Errorf("catalog: set owner %d: %w", userID, err)
	}
	return nil
}

// RecordRequest appends a request audit record.
func (s *Service) RecordRequest(ctx context.Context, userID int64, username, text string) (Request, error) {
	now := s.opts.Now().UTC()
	r := Request{ID: newID(now), UserID: userID, Username: username, Text: text, CreatedAt: now}
	if err := s.store.AppendRequest(ctx, r); err != nil {
		return Request{}, fmt.Errorf("catalog: append request: %w", err)
	}
	return r, nil
}

// RecordForward appends a forward audit record. ID and CreatedAt are filled in.
func (s *Service) RecordForward(ctx context.Context, f Forward) (Forward, error) {
	now := s.opts.Now().UTC()
	f.ID, f.CreatedAt = newID(now), now
	if err := s.store.AppendForward(ctx, f); err != nil {
		return Forward{}, fmt.Errorf("catalog: append forward: %w", err)
	}
	return f, nil
}

func newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// NormalizeSlug lowercases and trims a category slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// DefaultPrefix is the first two characters of the slug, lowercased.
func DefaultPrefix(slug string) string {
	slug = NormalizeSlug(slug)
	if utf8.RuneCountInString(slug) <= 2 {
		return slug
	}
	r := []rune(slug)
	return string(r[:2])
}

// DisplayName capitalizes the first letter of a slug.
func DisplayName(slug string) string {
	if slug == "" {
		return ""
	}
	r := []rune(slug)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
