// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
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

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Create inserts a new user. The caller supplies the password hash.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.EmailCI = text.Fold(u.Email)
	u.DisplayNameCI = text.Fold(u.DisplayName)
	if u.Status == "" {
		u.Status = models.StatusOnline
	}
	u.LastHeartbeat = now
	u.StatusUpdatedAt = now
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email_ci": text.Fold(email)}).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Heartbeat stamps a fresh last_heartbeat and restores status to online.
// This is the only server-side path that moves a status up the ladder; a
// custom status is left alone apart from the heartbeat stamp, since it is
// client-owned.
func (s *Store) Heartbeat(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_heartbeat": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "status": bson.M{"$ne": models.StatusCustom}},
		bson.M{"$set": bson.M{"status": models.StatusOnline, "status_updated_at": now}},
	)
	return err
}

// SetCustomStatus sets or clears a client-owned custom status. Clearing
// returns the user to online.
func (s *Store) SetCustomStatus(ctx context.Context, userID primitive.ObjectID, statusText string) error {
	now := time.Now().UTC()
	set := bson.M{"status_updated_at": now}
	update := bson.M{}
	if statusText == "" {
		set["status"] = models.StatusOnline
		update["$unset"] = bson.M{"custom_status": ""}
	} else {
		set["status"] = models.StatusCustom
		set["custom_status"] = statusText
	}
	update["$set"] = set

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// StaleProfiles returns users whose heartbeat is at or older than the
// cutoff and whose status the evaluator may still downgrade (online or
// idle). Away and custom profiles are excluded: away is the floor of the
// ladder and custom is client-owned.
func (s *Store) StaleProfiles(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"status":         bson.M{"$in": bson.A{models.StatusOnline, models.StatusIdle}},
		"last_heartbeat": bson.M{"$lte": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureIndexes creates indexes for the users collection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email_ci"),
		},
		// Presence sweep query
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "last_heartbeat", Value: 1}},
			Options: options.Index().SetName("idx_user_presence"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}
