package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/session"
)

type sessionRow struct {
	UserID    int64     `db:"user_id"`
	Mode      string    `db:"mode"`
	Stage     string    `db:"stage"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// PutSession overwrites the user's row. The payload is sent as text so
// lib/pq does not encode it as bytea.
func (s *Store) PutSession(ctx context.Context, rec session.Record) error {
	payload := string(rec.Payload)
	if payload == "" {
		payload = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, mode, stage, payload, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			stage = EXCLUDED.stage,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at`,
		rec.UserID, string(rec.Mode), string(rec.Stage), payload, rec.CreatedAt,
	)
	return err
}

// LoadSession filters expired rows in the query; the reaper deletes them.
func (s *Store) LoadSession(ctx context.Context, userID int64, notBefore time.Time) (session.Record, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, mode, stage, payload, created_at FROM sessions
		WHERE user_id = $1 AND created_at >= $2`,
		userID, notBefore,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, session.ErrNotFound
	}
	if err != nil {
		return session.Record{}, err
	}
	return session.Record{
		UserID:    row.UserID,
		Mode:      session.Mode(row.Mode),
		Stage:     session.Stage(row.Stage),
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// PurgeSessions deletes sessions created before cutoff and reports how many.
func (s *Store) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReapSessions purges expired sessions every interval until ctx is done.
func (s *Store) ReapSessions(ctx context.Context, ttl, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := s.PurgeSessions(ctx, now.Add(-ttl))
			switch {
			case err != nil && ctx.Err() == nil:
				logger.DB.WarnContext(ctx, "session purge failed",
					slog.String("event", "sessions.reap"),
					slog.String("status", "fail"),
					logger.Err(err),
				)
			case n > 0:
				logger.DB.DebugContext(ctx, "expired sessions purged",
					slog.String("event", "sessions.reap"),
					slog.String("status", "ok"),
					slog.Int64("count", n),
				)
			}
		}
	}
}
