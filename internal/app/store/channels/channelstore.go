// internal/app/store/channels/channelstore.go
package channelstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("channel not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("channels")}
}

// Create inserts a new channel under a workspace.
func (s *Store) Create(ctx context.Context, ch models.Channel) (models.Channel, error) {
	ch.ID = primitive.NewObjectID()
	ch.NameCI = text.Fold(ch.Name)
	if ch.Kind == "" {
		ch.Kind = models.ChannelText
	}
	ch.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, ch); err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

// GetByID retrieves a channel by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Channel, error) {
	var ch models.Channel
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Channel{}, ErrNotFound
		}
		return models.Channel{}, err
	}
	return ch, nil
}

// ListByWorkspace returns all channels for a workspace.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]models.Channel, error) {
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var channels []models.Channel
	if err := cur.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// IDsByWorkspace returns only the IDs of a workspace's channels. Cascade
// deletion enumerates containers with this before reaping their messages.
func (s *Store) IDsByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": workspaceID},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// EnsureIndexes creates indexes for the channels collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_channel_ws_name"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
