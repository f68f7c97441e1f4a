package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
)

type episodeRow struct {
	VisionID string        `db:"vision_id"`
	IsRange  bool          `db:"is_range"`
	Number   sql.NullInt64 `db:"number"`
	Start    sql.NullInt64 `db:"range_start"`
	End      sql.NullInt64 `db:"range_end"`
	Link     string        `db:"link"`
	FileRef  string        `db:"file_ref"`
	FileType string        `db:"file_type"`
	Caption  string        `db:"caption"`
	AddedAt  time.Time     `db:"added_at"`
}

func (r episodeRow) model() catalog.Episode {
	return catalog.Episode{
		VisionID: r.VisionID,
		IsRange:  r.IsRange,
		Number:   int(r.Number.Int64),
		Start:    int(r.Start.Int64),
		End:      int(r.End.Int64),
		Link:     r.Link,
		FileRef:  r.FileRef,
		FileType: r.FileType,
		Caption:  r.Caption,
		AddedAt:  r.AddedAt.UTC(),
	}
}

const episodeCols = `vision_id, is_range, number, range_start, range_end, link, file_ref, file_type, caption, added_at`

func nullInt(n int, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: valid}
}

// PutEpisode upserts on the partial unique index matching the record shape.
func (s *Store) PutEpisode(ctx context.Context, e catalog.Episode) error {
	conflict := `(vision_id, number) WHERE NOT is_range`
	if e.IsRange {
		conflict = `(vision_id, range_start, range_end) WHERE is_range`
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (`+episodeCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT `+conflict+` DO UPDATE SET
			link = EXCLUDED.link,
			file_ref = EXCLUDED.file_ref,
			file_type = EXCLUDED.file_type,
			caption = EXCLUDED.caption,
			added_at = EXCLUDED.added_at`,
		e.VisionID, e.IsRange,
		nullInt(e.Number, !e.IsRange), nullInt(e.Start, e.IsRange), nullInt(e.End, e.IsRange),
		e.Link, e.FileRef, e.FileType, e.Caption, e.AddedAt,
	)
	return mapErr(err)
}

func (s *Store) SingleEpisode(ctx context.Context, visionID string, number int) (catalog.Episode, error) {
	var row episodeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+episodeCols+` FROM episodes
		WHERE vision_id = $1 AND NOT is_range AND number = $2`,
		visionID, number,
	)
	if err != nil {
		return catalog.Episode{}, mapErr(err)
	}
	return row.model(), nil
}

// ContainingRange orders candidates by span, then start descending, then age.
func (s *Store) ContainingRange(ctx context.Context, visionID string, r episode.Range) (catalog.Episode, error) {
	var row episodeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+episodeCols+` FROM episodes
		WHERE vision_id = $1 AND is_range AND range_start <= $2 AND range_end >= $3
		ORDER BY range_end - range_start, range_start DESC, added_at, id
		LIMIT 1`,
		visionID, r.Start, r.End,
	)
	if err != nil {
		return catalog.Episode{}, mapErr(err)
	}
	return row.model(), nil
}

func (s *Store) MaxEpisodeNumber(ctx context.Context, visionID string) (int, error) {
	var n sql.NullInt64
	err := s.db.GetContext(ctx, &n, `SELECT max(number) FROM episodes WHERE vision_id = $1 AND NOT is_range`, visionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, mapErr(err)
	}
	return int(n.Int64), nil
}
