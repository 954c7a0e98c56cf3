// Package ledger maintains the label usage counts and trending scores
// derived from message lifecycle events.
//
// Counts are advisory (ranking and search), not authoritative: each
// event applies idempotent deltas, and the periodic recompute rebuilds
// every count from a full message scan to correct any drift the
// event-driven path accumulates under concurrency.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/app/store/labels"
	"github.com/parleyhq/parley/internal/app/store/messages"
	"github.com/parleyhq/parley/internal/app/system/batch"
	"github.com/parleyhq/parley/internal/app/system/labelnorm"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultWeight is the trending-score bump applied per new use of a
// label, and removed when the use disappears.
const DefaultWeight = 1.0

// Ledger reacts to content lifecycle events with counter deltas.
type Ledger struct {
	db       *mongo.Database
	labels   *labelstore.Store
	messages *messagestore.Store
	log      *zap.Logger
	weight   float64
}

// New creates a Ledger over the given database.
func New(db *mongo.Database, logger *zap.Logger) *Ledger {
	return &Ledger{
		db:       db,
		labels:   labelstore.New(db),
		messages: messagestore.New(db),
		log:      logger,
		weight:   DefaultWeight,
	}
}

// ContentCreated increments every label carried by the new message.
func (l *Ledger) ContentCreated(ctx context.Context, msg models.Message) error {
	return l.apply(ctx, nil, msg.Labels)
}

// ContentUpdated applies the symmetric difference between the old and
// new label sets: added labels take the created path, removed labels the
// deleted path. Identical sets are a no-op.
func (l *Ledger) ContentUpdated(ctx context.Context, before, after models.Message) error {
	return l.apply(ctx, before.Labels, after.Labels)
}

// ContentDeleted decrements every label the removed message carried.
func (l *Ledger) ContentDeleted(ctx context.Context, msg models.Message) error {
	return l.apply(ctx, msg.Labels, nil)
}

func (l *Ledger) apply(ctx context.Context, oldLabels, newLabels []string) error {
	added, removed := diff(labelnorm.Set(oldLabels), labelnorm.Set(newLabels))
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for norm, display := range added {
		if err := l.labels.Increment(ctx, norm, display, l.weight, now); err != nil {
			return fmt.Errorf("increment label %q: %w", norm, err)
		}
	}
	for norm := range removed {
		if err := l.labels.Decrement(ctx, norm, l.weight, now); err != nil {
			return fmt.Errorf("decrement label %q: %w", norm, err)
		}
	}
	return nil
}

// diff returns the labels present only in next (added) and only in prev
// (removed), keyed by normalized name.
func diff(prev, next map[string]string) (added, removed map[string]string) {
	added = make(map[string]string)
	removed = make(map[string]string)
	for norm, display := range next {
		if _, ok := prev[norm]; !ok {
			added[norm] = display
		}
	}
	for norm, display := range prev {
		if _, ok := next[norm]; !ok {
			removed[norm] = display
		}
	}
	return added, removed
}

type recomputed struct {
	display   string
	count     int64
	firstUsed time.Time
	lastUsed  time.Time
}

// Recompute rebuilds every ledger entry's count from a full scan of all
// messages, upserting corrected entries and reaping entries whose label
// no longer appears anywhere. Trending scores are left as the
// event-driven path shaped them. This is maintenance work, never on a
// request's critical path. Returns the number of entries written or
// removed.
func (l *Ledger) Recompute(ctx context.Context) (int64, error) {
	entries := make(map[string]*recomputed)

	err := l.messages.ScanLabels(ctx, func(u messagestore.LabelUsage) error {
		for norm, display := range labelnorm.Set(u.Labels) {
			e, ok := entries[norm]
			if !ok {
				e = &recomputed{display: display, firstUsed: u.CreatedAt, lastUsed: u.CreatedAt}
				entries[norm] = e
			}
			e.count++
			if u.CreatedAt.Before(e.firstUsed) {
				e.firstUsed = u.CreatedAt
			}
			if u.CreatedAt.After(e.lastUsed) {
				e.lastUsed = u.CreatedAt
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan message labels: %w", err)
	}

	w := batch.NewWriter(l.db)
	for norm, e := range entries {
		w.Queue("labels", mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": norm}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"display_name": e.display,
					"count":        e.count,
					"first_used":   e.firstUsed,
					"last_used":    e.lastUsed,
				},
				"$setOnInsert": bson.M{"trending_score": 0.0},
			}).
			SetUpsert(true))
	}

	// Reap entries for labels no longer used by any message.
	names, err := l.labels.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ledger names: %w", err)
	}
	for _, name := range names {
		if _, ok := entries[name]; !ok {
			w.Queue("labels", mongo.NewDeleteOneModel().
				SetFilter(bson.M{"_id": name}))
		}
	}

	res, err := w.Flush(ctx)
	changed := res.Modified("labels") + res["labels"].Upserted + res.Deleted("labels")
	if err != nil {
		return changed, err
	}

	l.log.Info("label ledger recomputed",
		zap.Int("labels", len(entries)),
		zap.Int64("changed", changed))
	return changed, nil
}
