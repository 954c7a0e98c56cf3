package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given email and display name.
func (f *Fixtures) CreateUser(ctx context.Context, email, displayName string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:              primitive.NewObjectID(),
		Email:           email,
		EmailCI:         text.Fold(email),
		DisplayName:     displayName,
		DisplayNameCI:   text.Fold(displayName),
		Status:          models.StatusOnline,
		LastHeartbeat:   now,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateUserWithPresence creates a test user with a specific presence
// state and heartbeat timestamp.
func (f *Fixtures) CreateUserWithPresence(ctx context.Context, email, status string, lastHeartbeat time.Time) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, email, "Presence User")
	update := bson.M{"status": status, "last_heartbeat": lastHeartbeat}
	if status == models.StatusCustom {
		update["custom_status"] = "busy testing"
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": update}); err != nil {
		f.t.Fatalf("failed to set presence fixture: %v", err)
	}
	u.Status = status
	u.LastHeartbeat = lastHeartbeat
	return u
}

// CreateWorkspace creates a test workspace owned by the given user.
func (f *Fixtures) CreateWorkspace(ctx context.Context, name string, ownerID primitive.ObjectID) models.Workspace {
	f.t.Helper()

	now := time.Now().UTC()
	ws := models.Workspace{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		OwnerIDs:   []primitive.ObjectID{ownerID},
		InviteCode: uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("workspaces").InsertOne(ctx, ws); err != nil {
		f.t.Fatalf("failed to create test workspace: %v", err)
	}
	return ws
}

// CreateChannel creates a test text channel in the given workspace.
func (f *Fixtures) CreateChannel(ctx context.Context, workspaceID primitive.ObjectID, name string) models.Channel {
	f.t.Helper()

	ch := models.Channel{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		Name:        name,
		NameCI:      text.Fold(name),
		Kind:        models.ChannelText,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("channels").InsertOne(ctx, ch); err != nil {
		f.t.Fatalf("failed to create test channel: %v", err)
	}
	return ch
}

// CreateMembership creates a membership and the matching back-reference
// on the user document.
func (f *Fixtures) CreateMembership(ctx context.Context, workspaceID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	if _, err := f.db.Collection("users").UpdateByID(ctx, userID,
		bson.M{"$addToSet": bson.M{"workspace_ids": workspaceID}}); err != nil {
		f.t.Fatalf("failed to add workspace back-reference: %v", err)
	}
	return m
}

// CreateMessage creates a test message with the given labels.
func (f *Fixtures) CreateMessage(ctx context.Context, channelID, workspaceID, authorID primitive.ObjectID, body string, labels ...string) models.Message {
	f.t.Helper()

	msg := models.Message{
		ID:          primitive.NewObjectID(),
		ChannelID:   channelID,
		WorkspaceID: workspaceID,
		AuthorID:    authorID,
		Body:        body,
		Labels:      labels,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := f.db.Collection("messages").InsertOne(ctx, msg); err != nil {
		f.t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}

// CreateLabel creates a ledger entry with the given count.
func (f *Fixtures) CreateLabel(ctx context.Context, name, display string, count int64) models.Label {
	f.t.Helper()

	now := time.Now().UTC()
	l := models.Label{
		Name:          name,
		DisplayName:   display,
		Count:         count,
		FirstUsed:     now,
		LastUsed:      now,
		TrendingScore: float64(count),
	}
	if _, err := f.db.Collection("labels").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test label: %v", err)
	}
	return l
}

// CountDocs returns the number of documents in the collection matching
// the filter.
func (f *Fixtures) CountDocs(ctx context.Context, collection string, filter bson.M) int64 {
	f.t.Helper()

	n, err := f.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		f.t.Fatalf("failed to count %s documents: %v", collection, err)
	}
	return n
}
