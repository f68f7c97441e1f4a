// Package postgres implements catalog.Store and session.Backend on
// PostgreSQL through sqlx and lib/pq. The schema lives in migrations/.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/session"
)

const uniqueViolation = "23505"

// Store is the postgres backend.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var (
	_ catalog.Store   = (*Store)(nil)
	_ session.Backend = (*Store)(nil)
)

// mapErr translates driver errors into catalog sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", catalog.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

type categoryRow struct {
	Slug    string `db:"slug"`
	Name    string `db:"name"`
	Counter int    `db:"counter"`
	Prefix  string `db:"prefix"`
}

func (r categoryRow) model() catalog.Category {
	return catalog.Category{Slug: r.Slug, Name: r.Name, Counter: r.Counter, Prefix: r.Prefix}
}

const categoryCols = `slug, name, counter, prefix`

func (s *Store) UpsertCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (slug, name, prefix) VALUES ($1, $2, $3) ON CONFLICT (slug) DO NOTHING`,
		c.Slug, c.Name, c.Prefix,
	); err != nil {
		return catalog.Category{}, mapErr(err)
	}
	var row categoryRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+categoryCols+` FROM categories WHERE slug = $1`, c.Slug); err != nil {
		return catalog.Category{}, mapErr(err)
	}
	return row.model(), nil
}

// IncrementCategory is a single INSERT .. ON CONFLICT DO UPDATE .. RETURNING,
// so concurrent callers always observe distinct counters.
func (s *Store) IncrementCategory(ctx context.Context, slug string) (catalog.Category, error) {
	var row categoryRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO categories (slug, name, counter) VALUES ($1, $2, 1)
		ON CONFLICT (slug) DO UPDATE SET counter = categories.counter + 1
		RETURNING `+categoryCols,
		slug, catalog.DisplayName(slug),
	)
	if err != nil {
		return catalog.Category{}, mapErr(err)
	}
	return row.model(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+categoryCols+` FROM categories ORDER BY name, slug`); err != nil {
		return nil, mapErr(err)
	}
	out := make([]catalog.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

type storyRow struct {
	VisionID    string    `db:"vision_id"`
	Category    string    `db:"category"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	PhotoRef    string    `db:"photo_ref"`
	CreatedBy   int64     `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r storyRow) model() catalog.Story {
	return catalog.Story{
		VisionID:    r.VisionID,
		Category:    r.Category,
		Title:       r.Title,
		Description: r.Description,
		PhotoRef:    r.PhotoRef,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func stories(rows []storyRow) []catalog.Story {
	out := make([]catalog.Story, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out
}

const storyCols = `vision_id, category, title, description, photo_ref, created_by, created_at`

func (s *Store) InsertStory(ctx context.Context, st catalog.Story) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO stories (`+storyCols+`)
		VALUES (:vision_id, :category, :title, :description, :photo_ref, :created_by, :created_at)`,
		storyRow{
			VisionID: st.VisionID, Category: st.Category, Title: st.Title, Description: st.Description,
			PhotoRef: st.PhotoRef, CreatedBy: st.CreatedBy, CreatedAt: st.CreatedAt,
		},
	)
	return mapErr(err)
}

func (s *Store) StoryByVisionID(ctx context.Context, visionID string) (catalog.Story, error) {
	var row storyRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+storyCols+` FROM stories WHERE vision_id = $1`, visionID); err != nil {
		return catalog.Story{}, mapErr(err)
	}
	return row.model(), nil
}

// SearchStories ranks by ts_rank over the generated tsvector column.
func (s *Store) SearchStories(ctx context.Context, query string, limit int) ([]catalog.Story, error) {
	var rows []storyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+storyCols+`
		FROM stories, websearch_to_tsquery('simple', $1) q
		WHERE search @@ q
		ORDER BY ts_rank(search, q) DESC, title, vision_id
		LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return stories(rows), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) MatchStories(ctx context.Context, query string, limit int) ([]catalog.Story, error) {
	var rows []storyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+storyCols+`
		FROM stories
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY title, vision_id
		LIMIT $2`,
		"%"+likeEscaper.Replace(query)+"%", limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return stories(rows), nil
}

func (s *Store) StoriesByCategory(ctx context.Context, slug string, limit int) ([]catalog.Story, error) {
	var rows []storyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+storyCols+`
		FROM stories
		WHERE category = $1
		ORDER BY created_at DESC, vision_id DESC
		LIMIT $2`,
		slug, limit,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return stories(rows), nil
}
