// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"errors"
	"time"

	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("message not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Insert stores a new message. The body must already be sanitized.
func (s *Store) Insert(ctx context.Context, msg models.Message) (models.Message, error) {
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetByID retrieves a message by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Message, error) {
	var msg models.Message
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, err
	}
	return msg, nil
}

// Edit replaces a message's body and labels, stamping edited_at. It
// returns the document as it was before the edit so the caller can diff
// label sets.
func (s *Store) Edit(ctx context.Context, id primitive.ObjectID, body string, labels []string) (models.Message, error) {
	now := time.Now().UTC()
	var before models.Message
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"body": body, "labels": labels, "edited_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err == mongo.ErrNoDocuments {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return before, nil
}

// Delete removes a message, returning the deleted document. A missing
// message returns ErrNotFound; idempotent callers treat that as done.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Message, error) {
	var msg models.Message
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return models.Message{}, ErrNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListByChannel returns a page of messages in a channel, newest first.
func (s *Store) ListByChannel(ctx context.Context, channelID primitive.ObjectID, limit int64) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"channel_id": channelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []models.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CountByWorkspace returns the number of messages in a workspace.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}

// LabelUsage is one message's label payload, streamed during recompute.
type LabelUsage struct {
	Labels    []string  `bson:"labels"`
	CreatedAt time.Time `bson:"created_at"`
}

// ScanLabels streams the labels of every live message to fn. The ledger
// recompute path uses this to rebuild counts from scratch; it projects
// only the fields it needs so the scan stays cheap even on large
// message collections.
func (s *Store) ScanLabels(ctx context.Context, fn func(LabelUsage) error) error {
	cur, err := s.c.Find(ctx,
		bson.M{"labels": bson.M{"$exists": true, "$ne": bson.A{}}},
		options.Find().SetProjection(bson.M{"labels": 1, "created_at": 1}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row LabelUsage
		if err := cur.Decode(&row); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return cur.Err()
}

// EnsureIndexes creates indexes for the messages collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "channel_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_message_channel_time"),
		},
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}},
			Options: options.Index().SetName("idx_message_workspace"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
