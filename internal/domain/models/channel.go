package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel kinds.
const (
	ChannelText  = "text"
	ChannelVoice = "voice"
)

// DefaultChannelName is the channel seeded into every new workspace.
const DefaultChannelName = "general"

// Channel is a second-level container nested under a workspace. It owns
// message documents; deleting a channel without first deleting its
// messages orphans them, since the store performs no referential cascade.
type Channel struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Kind        string             `bson:"kind" json:"kind"` // "text" | "voice"
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
