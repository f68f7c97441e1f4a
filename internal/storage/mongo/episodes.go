package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/episode"
)

type episodeDoc struct {
	VisionID string    `bson:"vision_id"`
	IsRange  bool      `bson:"is_range"`
	Number   int       `bson:"number,omitempty"`
	Start    int       `bson:"start,omitempty"`
	End      int       `bson:"end,omitempty"`
	Link     string    `bson:"link,omitempty"`
	FileRef  string    `bson:"file_ref,omitempty"`
	FileType string    `bson:"file_type,omitempty"`
	Caption  string    `bson:"caption,omitempty"`
	AddedAt  time.Time `bson:"added_at"`
}

func (d episodeDoc) model() catalog.Episode {
	return catalog.Episode{
		VisionID: d.VisionID,
		IsRange:  d.IsRange,
		Number:   d.Number,
		Start:    d.Start,
		End:      d.End,
		Link:     d.Link,
		FileRef:  d.FileRef,
		FileType: d.FileType,
		Caption:  d.Caption,
		AddedAt:  d.AddedAt.UTC(),
	}
}

func naturalKey(e catalog.Episode) bson.M {
	if e.IsRange {
		return bson.M{"vision_id": e.VisionID, "is_range": true, "start": e.Start, "end": e.End}
	}
	return bson.M{"vision_id": e.VisionID, "is_range": false, "number": e.Number}
}

func (s *Store) PutEpisode(ctx context.Context, e catalog.Episode) error {
	doc := episodeDoc{
		VisionID: e.VisionID,
		IsRange:  e.IsRange,
		Link:     e.Link,
		FileRef:  e.FileRef,
		FileType: e.FileType,
		Caption:  e.Caption,
		AddedAt:  e.AddedAt,
	}
	if e.IsRange {
		doc.Start, doc.End = e.Start, e.End
	} else {
		doc.Number = e.Number
	}
	_, err := s.col(colEpisodes).ReplaceOne(ctx, naturalKey(e), doc, options.Replace().SetUpsert(true))
	return mapErr(err)
}

func (s *Store) SingleEpisode(ctx context.Context, visionID string, number int) (catalog.Episode, error) {
	var doc episodeDoc
	err := s.col(colEpisodes).FindOne(ctx, bson.M{"vision_id": visionID, "is_range": false, "number": number}).Decode(&doc)
	if err != nil {
		return catalog.Episode{}, mapErr(err)
	}
	return doc.model(), nil
}

// ContainingRange computes the span in an aggregation so the tie-break
// order is applied by the server.
func (s *Store) ContainingRange(ctx context.Context, visionID string, r episode.Range) (catalog.Episode, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"vision_id": visionID,
			"is_range":  true,
			"start":     bson.M{"$lte": r.Start},
			"end":       bson.M{"$gte": r.End},
		}}},
		{{Key: "$addFields", Value: bson.M{"span": bson.M{"$subtract": bson.A{"$end", "$start"}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "span", Value: 1},
			{Key: "start", Value: -1},
			{Key: "added_at", Value: 1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: 1}},
	}
	cur, err := s.col(colEpisodes).Aggregate(ctx, pipeline)
	if err != nil {
		return catalog.Episode{}, mapErr(err)
	}
	defer cur.Close(ctx)
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return catalog.Episode{}, err
		}
		return catalog.Episode{}, catalog.ErrNotFound
	}
	var doc episodeDoc
	if err := cur.Decode(&doc); err != nil {
		return catalog.Episode{}, err
	}
	return doc.model(), nil
}

func (s *Store) MaxEpisodeNumber(ctx context.Context, visionID string) (int, error) {
	var doc episodeDoc
	err := s.col(colEpisodes).FindOne(ctx,
		bson.M{"vision_id": visionID, "is_range": false},
		options.FindOne().SetSort(bson.D{{Key: "number", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Number, nil
}
