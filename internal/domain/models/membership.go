// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Membership is the authoritative join between users and workspaces.
// Exactly one document per (workspace_id, user_id); role is a scalar.
//
// Invariant: every membership corresponds to exactly one entry in the
// user's workspace_ids back-reference list. The store cannot enforce
// this structurally; the membership store maintains it on add/remove and
// the cascade orchestrator restores it at workspace deletion time.
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"` // "owner" | "admin" | "member"
	JoinedAt    time.Time          `bson:"joined_at" json:"joined_at"`
}

// ValidRole reports whether s is a recognized membership role.
func ValidRole(s string) bool {
	return s == RoleOwner || s == RoleAdmin || s == RoleMember
}
