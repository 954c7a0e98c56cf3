package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a leaf content record inside a channel. It also carries the
// denormalized label strings that drive the tag ledger; labels are plain
// strings, not references, so the ledger reconciles their usage counts
// from message lifecycle events.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID   primitive.ObjectID `bson:"channel_id" json:"channel_id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	AuthorID    primitive.ObjectID `bson:"author_id" json:"author_id"`

	// Body is sanitized HTML (UGC policy applied before storage).
	Body string `bson:"body" json:"body"`

	// Labels is an order-irrelevant set of display-form label strings.
	Labels []string `bson:"labels,omitempty" json:"labels,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}
