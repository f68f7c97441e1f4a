package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/storybot/internal/catalog"
)

type registryDoc struct {
	OwnerID int64   `bson:"owner_id"`
	Admins  []int64 `bson:"admins"`
}

func (s *Store) AdminRegistry(ctx context.Context) (catalog.AdminRegistry, error) {
	var doc registryDoc
	if err := s.col(colConfig).FindOne(ctx, bson.M{"_id": adminsDocID}).Decode(&doc); err != nil {
		return catalog.AdminRegistry{}, mapErr(err)
	}
	return catalog.AdminRegistry{OwnerID: doc.OwnerID, Admins: doc.Admins}, nil
}

func (s *Store) GrantAdmin(ctx context.Context, userID int64) error {
	_, err := s.col(colConfig).UpdateOne(ctx,
		bson.M{"_id": adminsDocID},
		bson.M{"$addToSet": bson.M{"admins": userID}},
		options.Update().SetUpsert(true),
	)
	return mapErr(err)
}

func (s *Store) SetOwner(ctx context.Context, userID int64) error {
	_, err := s.col(colConfig).UpdateOne(ctx,
		bson.M{"_id": adminsDocID},
		bson.M{"$set": bson.M{"owner_id": userID}},
		options.Update().SetUpsert(true),
	)
	return mapErr(err)
}

type requestDoc struct {
	ID        string    `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	Username  string    `bson:"username,omitempty"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

func (s *Store) AppendRequest(ctx context.Context, r catalog.Request) error {
	_, err := s.col(colRequests).InsertOne(ctx, requestDoc{
		ID: r.ID, UserID: r.UserID, Username: r.Username, Text: r.Text, CreatedAt: r.CreatedAt,
	})
	return mapErr(err)
}

type forwardDoc struct {
	ID        string    `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	ChatID    int64     `bson:"chat_id"`
	MessageID int       `bson:"message_id"`
	Text      string    `bson:"text,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (s *Store) AppendForward(ctx context.Context, f catalog.Forward) error {
	_, err := s.col(colForwards).InsertOne(ctx, forwardDoc{
		ID: f.ID, UserID: f.UserID, ChatID: f.ChatID, MessageID: f.MessageID, Text: f.Text, CreatedAt: f.CreatedAt,
	})
	return mapErr(err)
}
