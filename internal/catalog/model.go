// Package catalog stores categories, stories, episodes, the admin registry
// and audit records, and implements the lookup policies the bot relies on.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/storybot/internal/episode"
)

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("catalog: duplicate")
	// ErrInvalidEpisode is returned when an episode is neither single nor range.
	ErrInvalidEpisode = errors.New("catalog: episode needs a number or a range")
)

// File type hints for episode payloads.
const (
	FileDocument = "document"
	FileAudio    = "audio"
	FileVideo    = "video"
	FilePhoto    = "photo"
)

// Category groups stories and owns the counter used to mint vision ids.
type Category struct {
	Slug    string
	Name    string
	Counter int
	Prefix  string
}

// Story is a cataloged serial. VisionID never changes once assigned.
type Story struct {
	VisionID    string
	Category    string
	Title       string
	Description string
	PhotoRef    string
	CreatedBy   int64
	CreatedAt   time.Time
}

// Episode is either a single episode (Number) or a range record covering
// Start..End (IsRange). Link and FileRef carry the delivery payload.
type Episode struct {
	VisionID string
	Number   int
	Start    int
	End      int
	IsRange  bool
	Link     string
	FileRef  string
	FileType string
	Caption  string
	AddedAt  time.Time
}

// Bounds returns the episodes the record covers.
func (e Episode) Bounds() episode.Range {
	if e.IsRange {
		return episode.Range{Start: e.Start, End: e.End}
	}
	return episode.Range{Start: e.Number, End: e.Number}
}

// AdminRegistry lists who may run admin flows.
type AdminRegistry struct {
	OwnerID int64
	Admins  []int64
}

// Request is an audit copy of a user's "Request & Comment" message.
type Request struct {
	ID        string
	UserID    int64
	Username  string
	Text      string
	CreatedAt time.Time
}

// Forward is an audit copy of an unsolicited message relayed to admins.
type Forward struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
	CreatedAt time.Time
}

// EpisodeSpec is the input of AddEpisode. Exactly one of Number or Range must be set.
type EpisodeSpec struct {
	Number   int
	Range    *episode.Range
	Link     string
	FileRef  string
	FileType string
	Caption  string
}

// Store is the persistence contract behind the Service. Postgres, MongoDB
// and the in-memory backend implement it.
type Store interface {
	UpsertCategory(ctx context.Context, c Category) (Category, error)
	// IncrementCategory atomically bumps the counter (creating the category
	// if needed) and returns the post-increment record.
	IncrementCategory(ctx context.Context, slug string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	InsertStory(ctx context.Context, s Story) error
	StoryByVisionID(ctx context.Context, visionID string) (Story, error)
	// SearchStories runs the ranked full-text search.
	SearchStories(ctx context.Context, query string, limit int) ([]Story, error)
	// MatchStories is the case-insensitive substring fallback, ordered by title.
	MatchStories(ctx context.Context, query string, limit int) ([]Story, error)
	StoriesByCategory(ctx context.Context, slug string, limit int) ([]Story, error)

	// PutEpisode upserts by natural key: (story, number) or (story, start, end).
	PutEpisode(ctx context.Context, e Episode) error
	SingleEpisode(ctx context.Context, visionID string, number int) (Episode, error)
	// ContainingRange returns the range record covering r, preferring the
	// narrowest span, then the greater start, then the oldest record.
	ContainingRange(ctx context.Context, visionID string, r episode.Range) (Episode, error)
	MaxEpisodeNumber(ctx context.Context, visionID string) (int, error)

	AdminRegistry(ctx context.Context) (AdminRegistry, error)
	GrantAdmin(ctx context.Context, userID int64) error
	SetOwner(ctx context.Context, userID int64) error

	AppendRequest(ctx context.Context, r Request) error
	AppendForward(ctx context.Context, f Forward) error
}
