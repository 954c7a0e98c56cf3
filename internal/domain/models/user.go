// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence statuses.
//
// The presence evaluator only ever moves a user down the ladder
// (online → idle → away). Upgrades happen exclusively through the
// heartbeat endpoint when the client reports activity. StatusCustom is
// client-owned and never touched by the evaluator.
const (
	StatusOnline = "online"
	StatusIdle   = "idle"
	StatusAway   = "away"
	StatusCustom = "custom"
)

// User represents a platform account and its presence profile.
//
// NOTE:
//   - Workspace membership is authoritative in the memberships collection.
//     WorkspaceIDs is a denormalized back-reference list maintained by the
//     membership store and the cascade orchestrator; the store does not
//     enforce the reciprocity.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	EmailCI       string             `bson:"email_ci" json:"email_ci"` // lowercase, diacritics-stripped
	DisplayName   string             `bson:"display_name" json:"display_name"`
	DisplayNameCI string             `bson:"display_name_ci" json:"display_name_ci"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`

	// Presence profile, mutated by the client on activity and by the
	// presence evaluator on inactivity.
	Status          string    `bson:"status" json:"status"`
	CustomStatus    string    `bson:"custom_status,omitempty" json:"custom_status,omitempty"`
	LastHeartbeat   time.Time `bson:"last_heartbeat" json:"last_heartbeat"`
	StatusUpdatedAt time.Time `bson:"status_updated_at" json:"status_updated_at"`

	// Back-references to workspaces this user belongs to.
	WorkspaceIDs []primitive.ObjectID `bson:"workspace_ids,omitempty" json:"workspace_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InWorkspace reports whether the back-reference list contains the workspace.
func (u User) InWorkspace(workspaceID primitive.ObjectID) bool {
	for _, id := range u.WorkspaceIDs {
		if id == workspaceID {
			return true
		}
	}
	return false
}
