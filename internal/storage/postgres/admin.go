package postgres

import (
	"context"

	"github.com/lib/pq"

	"github.com/m3rciful/storybot/internal/catalog"
)

func (s *Store) AdminRegistry(ctx context.Context) (catalog.AdminRegistry, error) {
	var row struct {
		OwnerID int64         `db:"owner_id"`
		Admins  pq.Int64Array `db:"admins"`
	}
	if err := s.db.GetContext(ctx, &row, `SELECT owner_id, admins FROM admin_registry WHERE id = 1`); err != nil {
		return catalog.AdminRegistry{}, mapErr(err)
	}
	return catalog.AdminRegistry{OwnerID: row.OwnerID, Admins: []int64(row.Admins)}, nil
}

func (s *Store) GrantAdmin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_registry (id, admins) VALUES (1, ARRAY[$1::bigint])
		ON CONFLICT (id) DO UPDATE SET admins = CASE
			WHEN $1::bigint = ANY (admin_registry.admins) THEN admin_registry.admins
			ELSE array_append(admin_registry.admins, $1::bigint)
		END`,
		userID,
	)
	return mapErr(err)
}

func (s *Store) SetOwner(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_registry (id, owner_id) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id`,
		userID,
	)
	return mapErr(err)
}

func (s *Store) AppendRequest(ctx context.Context, r catalog.Request) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (id, user_id, username, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.Username, r.Text, r.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) AppendForward(ctx context.Context, f catalog.Forward) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO forwards (id, user_id, chat_id, message_id, text, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.UserID, f.ChatID, f.MessageID, f.Text, f.CreatedAt,
	)
	return mapErr(err)
}
