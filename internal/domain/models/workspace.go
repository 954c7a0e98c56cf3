package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxOwners bounds the number of owners a workspace may have.
const MaxOwners = 3

// Workspace represents a top-level tenant container in Parley.
// Each workspace owns its channels, messages, and memberships; none of
// those relationships are enforced by the store, so lifecycle operations
// (notably deletion) must clean them up explicitly.
//
// A workspace is created together with one owner membership and one
// default channel, and is only destroyed through the cascade orchestrator.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"` // Case-insensitive for search

	// Owners may invoke destructive operations (deletion, ownership changes).
	// Bounded at MaxOwners.
	OwnerIDs []primitive.ObjectID `bson:"owner_ids" json:"owner_ids"`

	// InviteCode is a shareable join token.
	InviteCode string `bson:"invite_code" json:"invite_code"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOwner reports whether the given user is in the owner set.
func (w Workspace) IsOwner(userID primitive.ObjectID) bool {
	for _, id := range w.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
