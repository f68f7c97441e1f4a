package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/storybot/internal/session"
)

type sessionDoc struct {
	UserID    int64     `bson:"_id"`
	Mode      string    `bson:"mode"`
	Stage     string    `bson:"stage,omitempty"`
	Payload   string    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
}

func (s *Store) PutSession(ctx context.Context, rec session.Record) error {
	doc := sessionDoc{
		UserID:    rec.UserID,
		Mode:      string(rec.Mode),
		Stage:     string(rec.Stage),
		Payload:   string(rec.Payload),
		CreatedAt: rec.CreatedAt,
	}
	_, err := s.col(colSessions).ReplaceOne(ctx, bson.M{"_id": rec.UserID}, doc, options.Replace().SetUpsert(true))
	return err
}

// LoadSession filters on created_at because the TTL monitor runs only
// about once a minute.
func (s *Store) LoadSession(ctx context.Context, userID int64, notBefore time.Time) (session.Record, error) {
	var doc sessionDoc
	err := s.col(colSessions).FindOne(ctx, bson.M{
		"_id":        userID,
		"created_at": bson.M{"$gte": notBefore},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return session.Record{}, session.ErrNotFound
	}
	if err != nil {
		return session.Record{}, err
	}
	return session.Record{
		UserID:    doc.UserID,
		Mode:      session.Mode(doc.Mode),
		Stage:     session.Stage(doc.Stage),
		Payload:   []byte(doc.Payload),
		CreatedAt: doc.CreatedAt.UTC(),
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID int64) error {
	_, err := s.col(colSessions).DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
