// Package cascade deletes a workspace and everything nested beneath it.
//
// The store has no cross-collection transactions and no referential
// cascade, so deletion runs as an explicit sequence of idempotent phases,
// each flushed through the batched writer: messages, then channels, then
// memberships together with the members' back-reference pulls, then the
// workspace document itself. A crash between phases leaves a shape the
// next invocation finishes, because every phase finds-nothing-and-moves-on
// when its work is already done.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/parleyhq/parley/internal/app/store/channels"
	"github.com/parleyhq/parley/internal/app/store/memberships"
	"github.com/parleyhq/parley/internal/app/store/workspaces"
	"github.com/parleyhq/parley/internal/app/system/batch"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotOwner is returned when the requesting principal does not hold
// the owner role on the workspace.
var ErrNotOwner = errors.New("only a workspace owner can delete it")

// Result reports how many documents each phase removed.
type Result struct {
	MessagesDeleted    int64 `json:"messages_deleted"`
	ChannelsDeleted    int64 `json:"channels_deleted"`
	MembershipsDeleted int64 `json:"memberships_deleted"`
}

// Orchestrator sequences the deletion phases.
type Orchestrator struct {
	db          *mongo.Database
	workspaces  *workspacestore.Store
	channels    *channelstore.Store
	memberships *membershipstore.Store
	log         *zap.Logger
}

// New creates an Orchestrator over the given database.
func New(db *mongo.Database, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		db:          db,
		workspaces:  workspacestore.New(db),
		channels:    channelstore.New(db),
		memberships: membershipstore.New(db),
		log:         logger,
	}
}

// Delete is the guarded entrypoint. While the workspace document exists,
// the actor must hold role=owner; no mutation happens otherwise. Once the
// document is gone — a completed earlier run or an out-of-band delete —
// the authorization already happened implicitly and the remaining phases
// are zero-effect, so a repeat invocation succeeds with zero counts
// instead of erroring.
func (o *Orchestrator) Delete(ctx context.Context, workspaceID, actorID primitive.ObjectID) (Result, error) {
	_, err := o.workspaces.GetByID(ctx, workspaceID)
	switch {
	case err == nil:
		role, err := o.memberships.GetRole(ctx, workspaceID, actorID)
		if errors.Is(err, membershipstore.ErrNotFound) {
			return Result{}, ErrNotOwner
		}
		if err != nil {
			return Result{}, err
		}
		if role != models.RoleOwner {
			return Result{}, ErrNotOwner
		}
	case errors.Is(err, workspacestore.ErrNotFound):
		// Re-invocation after a partial or completed run; finish up.
	default:
		return Result{}, err
	}

	res, err := o.run(ctx, workspaceID, false)
	if err == nil {
		o.log.Info("workspace deleted",
			zap.String("workspace_id", workspaceID.Hex()),
			zap.String("deleted_by", actorID.Hex()),
			zap.Int64("messages", res.MessagesDeleted),
			zap.Int64("channels", res.ChannelsDeleted),
			zap.Int64("memberships", res.MembershipsDeleted))
	}
	return res, err
}

// Reap is the best-effort reaction to a workspace document that was
// already removed out-of-band. It runs the same phases without an
// authorization check, logging rather than propagating phase failures.
// It is a safety net, never the primary deletion path: it cannot stop a
// half-deleted workspace from being briefly visible.
func (o *Orchestrator) Reap(ctx context.Context, workspaceID primitive.ObjectID) Result {
	res, _ := o.run(ctx, workspaceID, true)
	o.log.Info("workspace reap finished",
		zap.String("workspace_id", workspaceID.Hex()),
		zap.Int64("messages", res.MessagesDeleted),
		zap.Int64("channels", res.ChannelsDeleted),
		zap.Int64("memberships", res.MembershipsDeleted))
	return res
}

func (o *Orchestrator) run(ctx context.Context, workspaceID primitive.ObjectID, bestEffort bool) (Result, error) {
	var res Result

	fail := func(phase string, err error) error {
		if err == nil {
			return nil
		}
		if bestEffort {
			o.log.Warn("cascade phase failed",
				zap.String("phase", phase),
				zap.String("workspace_id", workspaceID.Hex()),
				zap.Error(err))
			return nil
		}
		return fmt.Errorf("cascade phase %s: %w", phase, err)
	}

	n, err := o.deleteMessages(ctx, workspaceID)
	res.MessagesDeleted = n
	if e := fail("messages", err); e != nil {
		return res, e
	}

	n, err = o.deleteChannels(ctx, workspaceID)
	res.ChannelsDeleted = n
	if e := fail("channels", err); e != nil {
		return res, e
	}

	n, err = o.deleteMemberships(ctx, workspaceID)
	res.MembershipsDeleted = n
	if e := fail("memberships", err); e != nil {
		return res, e
	}

	_, err = o.workspaces.Delete(ctx, workspaceID)
	if e := fail("workspace", err); e != nil {
		return res, e
	}

	return res, nil
}

// deleteMessages enumerates the workspace's channels and reaps each
// one's messages. A trailing workspace-wide delete catches messages
// whose channel vanished in an earlier partial run.
func (o *Orchestrator) deleteMessages(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	channelIDs, err := o.channels.IDsByWorkspace(ctx, workspaceID)
	if err != nil {
		return 0, err
	}

	w := batch.NewWriter(o.db)
	for _, chID := range channelIDs {
		w.Queue("messages", mongo.NewDeleteManyModel().
			SetFilter(bson.M{"channel_id": chID}))
	}
	w.Queue("messages", mongo.NewDeleteManyModel().
		SetFilter(bson.M{"workspace_id": workspaceID}))

	res, err := w.Flush(ctx)
	return res.Deleted("messages"), err
}

func (o *Orchestrator) deleteChannels(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	w := batch.NewWriter(o.db)
	w.Queue("channels", mongo.NewDeleteManyModel().
		SetFilter(bson.M{"workspace_id": workspaceID}))

	res, err := w.Flush(ctx)
	return res.Deleted("channels"), err
}

// deleteMemberships removes every membership and, in the same flush,
// pulls the workspace from each member's back-reference list, restoring
// the reciprocity invariant the store cannot enforce on its own.
func (o *Orchestrator) deleteMemberships(ctx context.Context, workspaceID primitive.ObjectID) (int64, error) {
	members, err := o.memberships.ListByWorkspace(ctx, workspaceID, "")
	if err != nil {
		return 0, err
	}

	w := batch.NewWriter(o.db)
	for _, m := range members {
		w.Queue("memberships", mongo.NewDeleteOneModel().
			SetFilter(bson.M{"_id": m.ID}))
		w.Queue("users", mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": m.UserID}).
			SetUpdate(bson.M{"$pull": bson.M{"workspace_ids": workspaceID}}))
	}

	res, err := w.Flush(ctx)
	return res.Deleted("memberships"), err
}
