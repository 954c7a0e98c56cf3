package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/parleyhq/parley/internal/app/system/cascade"
	"github.com/parleyhq/parley/internal/app/system/ledger"
	"github.com/parleyhq/parley/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Watcher tails change streams and reacts to document lifecycle events:
// workspace deletions feed the cascade reaper, message inserts, updates
// and deletes feed the label ledger.
//
// Change streams need a replica set. Against a standalone server Watch
// fails immediately; the watcher logs that and exits. Without it the
// guarded deletion endpoint still cascades, and the recompute job
// reconciles the ledger, so derived state converges either way, just
// more slowly.
type Watcher struct {
	db      *mongo.Database
	cascade *cascade.Orchestrator
	ledger  *ledger.Ledger
	log     *zap.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a Watcher over the given database.
func NewWatcher(db *mongo.Database, casc *cascade.Orchestrator, led *ledger.Ledger, logger *zap.Logger) *Watcher {
	return &Watcher{
		db:      db,
		cascade: casc,
		ledger:  led,
		log:     logger,
	}
}

// Start launches the workspace and message watch loops.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(2)
	go w.watchWorkspaces(ctx)
	go w.watchMessages(ctx)
}

// Stop cancels the watch loops and waits for them to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("change stream watchers stopped")
}

// watchWorkspaces reaps orphaned children whenever a workspace document
// disappears, including deletes that bypassed the guarded endpoint.
func (w *Watcher) watchWorkspaces(ctx context.Context) {
	defer w.wg.Done()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"operationType": "delete"}}},
	}
	stream, err := w.db.Collection("workspaces").Watch(ctx, pipeline)
	if err != nil {
		w.log.Warn("workspace change stream unavailable; relying on guarded deletion only",
			zap.Error(err))
		return
	}
	defer stream.Close(context.Background())

	w.log.Info("watching workspace deletions")

	for stream.Next(ctx) {
		var ev struct {
			DocumentKey struct {
				ID primitive.ObjectID `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := stream.Decode(&ev); err != nil {
			w.log.Warn("decode workspace event", zap.Error(err))
			continue
		}
		w.cascade.Reap(ctx, ev.DocumentKey.ID)
	}
	w.streamClosed(ctx, "workspaces", stream.Err())
}

// watchMessages feeds message lifecycle events to the label ledger. The
// update path needs both document images, so the stream asks for the
// post-image via lookup and the pre-image when the collection has them
// enabled; events missing an image are skipped and left to the
// recompute job.
func (w *Watcher) watchMessages(ctx context.Context) {
	defer w.wg.Done()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}},
		}}},
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	stream, err := w.db.Collection("messages").Watch(ctx, pipeline, opts)
	if err != nil {
		w.log.Warn("message change stream unavailable; ledger relies on periodic recompute",
			zap.Error(err))
		return
	}
	defer stream.Close(context.Background())

	w.log.Info("watching message lifecycle")

	for stream.Next(ctx) {
		var ev struct {
			OperationType string          `bson:"operationType"`
			FullDocument  *models.Message `bson:"fullDocument"`
			Before        *models.Message `bson:"fullDocumentBeforeChange"`
		}
		if err := stream.Decode(&ev); err != nil {
			w.log.Warn("decode message event", zap.Error(err))
			continue
		}
		if err := w.applyMessageEvent(ctx, ev.OperationType, ev.Before, ev.FullDocument); err != nil {
			w.log.Warn("apply message event",
				zap.String("operation", ev.OperationType),
				zap.Error(err))
		}
	}
	w.streamClosed(ctx, "messages", stream.Err())
}

func (w *Watcher) applyMessageEvent(ctx context.Context, op string, before, after *models.Message) error {
	switch op {
	case "insert":
		if after == nil {
			return nil
		}
		return w.ledger.ContentCreated(ctx, *after)
	case "update", "replace":
		if before == nil || after == nil {
			// No pre-image available; the recompute job will reconcile.
			return nil
		}
		return w.ledger.ContentUpdated(ctx, *before, *after)
	case "delete":
		if before == nil {
			return nil
		}
		return w.ledger.ContentDeleted(ctx, *before)
	}
	return nil
}

func (w *Watcher) streamClosed(ctx context.Context, collection string, err error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	w.log.Warn("change stream closed",
		zap.String("collection", collection),
		zap.Error(err))
}
