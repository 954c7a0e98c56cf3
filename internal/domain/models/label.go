package models

import "time"

// Label is the ledger entry tracking a label's aggregate usage. The
// normalized name is the document identity, so concurrent first uses of
// the same label converge on a single entry.
//
// Count tracks the number of live messages currently carrying the label.
// Because updates are event-driven rather than recomputed on every write,
// the count is only eventually consistent; the recompute maintenance job
// corrects drift. Counts are advisory (ranking/search), never authoritative.
type Label struct {
	// Name is the normalized form (folded, lowercased, leading '#' stripped).
	Name string `bson:"_id" json:"name"`

	// DisplayName preserves the casing of the most recent use.
	DisplayName string `bson:"display_name" json:"display_name"`

	Count         int64     `bson:"count" json:"count"`
	FirstUsed     time.Time `bson:"first_used" json:"first_used"`
	LastUsed      time.Time `bson:"last_used" json:"last_used"`
	TrendingScore float64   `bson:"trending_score" json:"trending_score"`
}
