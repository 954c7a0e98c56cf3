// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound   = errors.New("workspace not found")
	ErrOwnerLimit = errors.New("workspace already has the maximum number of owners")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("workspaces")}
}

// Create inserts a new workspace. The caller supplies the initial owner
// set; seeding the owner membership and default channel happens at the
// feature layer through the batched writer.
func (s *Store) Create(ctx context.Context, ws models.Workspace) (models.Workspace, error) {
	if len(ws.OwnerIDs) == 0 || len(ws.OwnerIDs) > models.MaxOwners {
		return models.Workspace{}, ErrOwnerLimit
	}
	now := time.Now().UTC()
	ws.ID = primitive.NewObjectID()
	ws.NameCI = text.Fold(ws.Name)
	if ws.InviteCode == "" {
		ws.InviteCode = uuid.NewString()
	}
	ws.CreatedAt = now
	ws.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ws); err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByInviteCode retrieves a workspace by its invite code.
func (s *Store) GetByInviteCode(ctx context.Context, code string) (models.Workspace, error) {
	var ws models.Workspace
	err := s.c.FindOne(ctx, bson.M{"invite_code": code}).Decode(&ws)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// AddOwner adds a user to the owner set, enforcing the MaxOwners bound.
// The filter rejects the push once the set is full, so concurrent adds
// cannot exceed the bound.
func (s *Store) AddOwner(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":       id,
			"owner_ids": bson.M{"$ne": userID},
			// Index MaxOwners-1 existing means the set is already full.
			"owner_ids." + lastOwnerIndex: bson.M{"$exists": false},
		},
		bson.M{
			"$push": bson.M{"owner_ids": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either absent, already an owner, or at the bound; disambiguate.
		ws, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ws.IsOwner(userID) {
			return nil
		}
		return ErrOwnerLimit
	}
	return nil
}

const lastOwnerIndex = "2" // models.MaxOwners - 1

// Delete removes a workspace by ID. Returns the number of documents
// deleted (0 when already absent, which cascade treats as success).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByIDs returns the workspaces whose IDs are in the given set.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Workspace, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var workspaces []models.Workspace
	if err := cur.All(ctx, &workspaces); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// Count returns the number of workspaces matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}

// EnsureIndexes creates indexes for the workspaces collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invite_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_workspace_invite"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_workspace_name_ci"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
