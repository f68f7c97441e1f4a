// Package mongo implements catalog.Store and session.Backend on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/session"
)

// Collection names.
const (
	colCategories = "categories"
	colStories    = "stories"
	colEpisodes   = "episodes"
	colConfig     = "config"
	colSessions   = "user_states"
	colRequests   = "requests"
	colForwards   = "forwards"

	adminsDocID = "admins"
)

// Store is the MongoDB backend.
type Store struct {
	db *mongo.Database
}

// New wraps a resolved database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

var (
	_ catalog.Store   = (*Store)(nil)
	_ session.Backend = (*Store)(nil)
)

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return catalog.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
	}
	return err
}

type categoryDoc struct {
	Slug    string `bson:"_id"`
	Name    string `bson:"name"`
	Counter int    `bson:"counter"`
	Prefix  string `bson:"prefix,omitempty"`
}

func (d categoryDoc) model() catalog.Category {
	return catalog.Category{Slug: d.Slug, Name: d.Name, Counter: d.Counter, Prefix: d.Prefix}
}

func (s *Store) UpsertCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	var doc categoryDoc
	err := s.col(colCategories).FindOneAndUpdate(ctx,
		bson.M{"_id": c.Slug},
		bson.M{"$setOnInsert": bson.M{"name": c.Name, "counter": 0, "prefix": c.Prefix}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return catalog.Category{}, mapErr(err)
	}
	return doc.model(), nil
}

// IncrementCategory relies on $inc with upsert being atomic for one document.
func (s *Store) IncrementCategory(ctx context.Context, slug string) (catalog.Category, error) {
	var doc categoryDoc
	err := s.col(colCategories).FindOneAndUpdate(ctx,
		bson.M{"_id": slug},
		bson.M{
			"$inc":         bson.M{"counter": 1},
			"$setOnInsert": bson.M{"name": catalog.DisplayName(slug)},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return catalog.Category{}, mapErr(err)
	}
	return doc.model(), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	cur, err := s.col(colCategories).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]catalog.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

type storyDoc struct {
	VisionID    string    `bson:"_id"`
	Category    string    `bson:"category"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	PhotoRef    string    `bson:"photo_ref"`
	CreatedBy   int64     `bson:"created_by"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d storyDoc) model() catalog.Story {
	return catalog.Story{
		VisionID:    d.VisionID,
		Category:    d.Category,
		Title:       d.Title,
		Description: d.Description,
		PhotoRef:    d.PhotoRef,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

func (s *Store) findStories(ctx context.Context, filter any, opts *options.FindOptions) ([]catalog.Story, error) {
	cur, err := s.col(colStories).Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	var docs []storyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]catalog.Story, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) InsertStory(ctx context.Context, st catalog.Story) error {
	_, err := s.col(colStories).InsertOne(ctx, storyDoc{
		VisionID:    st.VisionID,
		Category:    st.Category,
		Title:       st.Title,
		Description: st.Description,
		PhotoRef:    st.PhotoRef,
		CreatedBy:   st.CreatedBy,
		CreatedAt:   st.CreatedAt,
	})
	return mapErr(err)
}

func (s *Store) StoryByVisionID(ctx context.Context, visionID string) (catalog.Story, error) {
	var doc storyDoc
	if err := s.col(colStories).FindOne(ctx, bson.M{"_id": visionID}).Decode(&doc); err != nil {
		return catalog.Story{}, mapErr(err)
	}
	return doc.model(), nil
}

// SearchStories uses the text index over title and description.
func (s *Store) SearchStories(ctx context.Context, query string, limit int) ([]catalog.Story, error) {
	score := bson.M{"$meta": "textScore"}
	return s.findStories(ctx,
		bson.M{"$text": bson.M{"$search": query}},
		options.Find().
			SetProjection(bson.M{"score": score}).
			SetSort(bson.D{{Key: "score", Value: score}, {Key: "title", Value: 1}}).
			SetLimit(int64(limit)),
	)
}

func (s *Store) MatchStories(ctx context.Context, query string, limit int) ([]catalog.Story, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return s.findStories(ctx,
		bson.M{"$or": bson.A{bson.M{"title": re}, bson.M{"description": re}}},
		options.Find().
			SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}).
			SetLimit(int64(limit)),
	)
}

func (s *Store) StoriesByCategory(ctx context.Context, slug string, limit int) ([]catalog.Story, error) {
	return s.findStories(ctx,
		bson.M{"category": slug},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(limit)),
	)
}
