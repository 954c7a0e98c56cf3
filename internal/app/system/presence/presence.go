// Package presence implements the time-driven presence state machine.
//
// The machine only moves users down the ladder: online → idle after the
// idle threshold without a heartbeat, idle → away after the away
// threshold. Upgrades are client-only, via the heartbeat endpoint, which
// also stamps a fresh heartbeat. A tick is a fixed point: re-running it
// against unchanged data produces no further writes, so overlapping or
// duplicated ticks are redundant rather than harmful.
package presence

import (
	"context"
	"time"

	"github.com/parleyhq/parley/internal/app/store/users"
	"github.com/parleyhq/parley/internal/app/system/batch"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Default thresholds and tick interval. A user who goes inactive right
// after a tick waits up to one interval past the threshold before being
// demoted; that resolution trade-off is accepted.
const (
	DefaultIdleAfter = 10 * time.Minute
	DefaultAwayAfter = 20 * time.Minute
	DefaultInterval  = 5 * time.Minute
)

// Implied returns the status the evaluator should assign given the
// current status and heartbeat age. It never upgrades: away is the floor
// of the ladder, idle is only entered from online, and custom statuses
// are client-owned and untouched.
func Implied(status string, lastHeartbeat, now time.Time, idleAfter, awayAfter time.Duration) string {
	switch status {
	case models.StatusCustom, models.StatusAway:
		return status
	}

	elapsed := now.Sub(lastHeartbeat)
	switch {
	case elapsed >= awayAfter:
		return models.StatusAway
	case elapsed >= idleAfter && status == models.StatusOnline:
		return models.StatusIdle
	default:
		return status
	}
}

// Evaluator scans user profiles on a schedule and applies the implied
// downgrades in bounded batches.
type Evaluator struct {
	db        *mongo.Database
	users     *userstore.Store
	log       *zap.Logger
	idleAfter time.Duration
	awayAfter time.Duration
}

// NewEvaluator creates an Evaluator. Non-positive thresholds fall back
// to the defaults.
func NewEvaluator(db *mongo.Database, logger *zap.Logger, idleAfter, awayAfter time.Duration) *Evaluator {
	if idleAfter <= 0 {
		idleAfter = DefaultIdleAfter
	}
	if awayAfter <= idleAfter {
		awayAfter = idleAfter * 2
	}
	return &Evaluator{
		db:        db,
		users:     userstore.New(db),
		log:       logger,
		idleAfter: idleAfter,
		awayAfter: awayAfter,
	}
}

// Tick evaluates every profile whose heartbeat is stale enough to
// matter and writes one update per status mismatch. Each update's filter
// pins the status and heartbeat the decision was based on, so a
// heartbeat landing between scan and write simply wins. Returns the
// number of profiles demoted.
func (e *Evaluator) Tick(ctx context.Context, now time.Time) (int64, error) {
	stale, err := e.users.StaleProfiles(ctx, now.Add(-e.idleAfter))
	if err != nil {
		return 0, err
	}

	w := batch.NewWriter(e.db)
	for _, u := range stale {
		implied := Implied(u.Status, u.LastHeartbeat, now, e.idleAfter, e.awayAfter)
		if implied == u.Status {
			continue
		}
		w.Queue("users", mongo.NewUpdateOneModel().
			SetFilter(bson.M{
				"_id":            u.ID,
				"status":         u.Status,
				"last_heartbeat": u.LastHeartbeat,
			}).
			SetUpdate(bson.M{"$set": bson.M{
				"status":            implied,
				"status_updated_at": now,
			}}))
	}

	if w.Pending() == 0 {
		return 0, nil
	}
	res, err := w.Flush(ctx)
	return res.Modified("users"), err
}
