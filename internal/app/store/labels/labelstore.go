// internal/app/store/labels/labelstore.go
package labelstore

import (
	"context"
	"errors"
	"time"

	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("label not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("labels")}
}

// Increment bumps a label's usage count and trending score in a single
// atomic upsert. The normalized name is the document identity and
// $setOnInsert seeds first_used, so two concurrent first uses of a brand
// new label converge on one entry with count 2 instead of racing a
// check-then-create.
func (s *Store) Increment(ctx context.Context, name, display string, weight float64, now time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{
			"$inc": bson.M{"count": 1, "trending_score": weight},
			"$set": bson.M{"display_name": display, "last_used": now},
			"$setOnInsert": bson.M{"first_used": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// Decrement lowers a label's usage count and trending score, then reaps
// the entry if the count reached zero. The reap is filtered on count<=0
// so a concurrent increment between the two steps keeps the entry alive.
// A missing entry is success-with-zero-effect: the decrement is
// idempotent against double deletion events, and drift is the recompute
// job's problem.
func (s *Store) Decrement(ctx context.Context, name string, weight float64, now time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{
			"$inc": bson.M{"count": -1, "trending_score": -weight},
			"$set": bson.M{"last_used": now},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return nil
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": name, "count": bson.M{"$lte": 0}})
	return err
}

// Get retrieves a ledger entry by normalized name.
func (s *Store) Get(ctx context.Context, name string) (models.Label, error) {
	var l models.Label
	err := s.c.FindOne(ctx, bson.M{"_id": name}).Decode(&l)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Label{}, ErrNotFound
		}
		return models.Label{}, err
	}
	return l, nil
}

// Trending returns the top labels by trending score.
func (s *Store) Trending(ctx context.Context, limit int64) ([]models.Label, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "trending_score", Value: -1}, {Key: "count", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var labels []models.Label
	if err := cur.All(ctx, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// Names returns every ledger entry's normalized name. The recompute path
// uses this to find entries whose labels no longer appear on any message.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var row struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		names = append(names, row.Name)
	}
	return names, cur.Err()
}

// EnsureIndexes creates indexes for the labels collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trending_score", Value: -1}, {Key: "count", Value: -1}},
			Options: options.Index().SetName("idx_label_trending"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
