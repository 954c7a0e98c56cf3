// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
}

var (
	errBadRole = errors.New(`role must be "owner", "admin", or "member"`)

	ErrDuplicateMembership = errors.New("user is already a member of this workspace")
	ErrNotFound            = errors.New("membership not found")
)

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("memberships"),
		users: db.Collection("users"),
	}
}

// Add creates a membership and records the reciprocal back-reference on
// the user document. The two writes are separate operations; on a crash
// in between, the membership exists without its back-reference until the
// next Add/Remove for the pair or a workspace cascade repairs it.
func (s *Store) Add(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) error {
	if !models.ValidRole(role) {
		return errBadRole
	}

	doc := bson.M{
		"workspace_id": workspaceID,
		"user_id":      userID,
		"role":         role,
		"joined_at":    time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}

	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"workspace_ids": workspaceID}},
	)
	return err
}

// Remove deletes the membership for (workspaceID, userID) and pulls the
// workspace from the user's back-reference list. Removing a non-existent
// membership is not an error.
func (s *Store) Remove(ctx context.Context, workspaceID, userID primitive.ObjectID) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID}); err != nil {
		return err
	}
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"workspace_ids": workspaceID}},
	)
	return err
}

// GetRole returns the role a user holds in a workspace.
func (s *Store) GetRole(ctx context.Context, workspaceID, userID primitive.ObjectID) (string, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"workspace_id": workspaceID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// ListByWorkspace returns all memberships for a workspace, optionally
// filtered by role. If role is empty, returns all memberships.
func (s *Store) ListByWorkspace(ctx context.Context, workspaceID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"workspace_id": workspaceID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByWorkspace returns the count of memberships for a workspace.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": workspaceID})
}

// EnsureIndexes creates indexes for the memberships collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// One membership per (workspace, user) pair
		{
			Keys:    bson.D{{Key: "workspace_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_membership_ws_user"),
		},
		// A user's memberships
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_membership_user"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
