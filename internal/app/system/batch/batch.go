// Package batch wraps MongoDB's bulk write primitive with the bound the
// platform imposes on a single atomic multi-document operation.
//
// A BulkWrite is atomic per call but limited in size and scoped to one
// collection, so every higher-level mechanism (cascade deletion, presence
// sweeps, ledger recompute) queues its mutations here and lets Flush chunk
// them at the limit. Chunks are atomic individually; a flush spanning
// several chunks or collections is not all-or-nothing, which is why callers
// are required to keep their phases independently idempotent.
package batch

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxOps is the maximum number of write models submitted in one BulkWrite.
const MaxOps = 500

// Counts summarizes the effect of flushed writes on one collection.
type Counts struct {
	Inserted int64
	Matched  int64
	Modified int64
	Deleted  int64
	Upserted int64
}

func (c *Counts) add(res *mongo.BulkWriteResult) {
	c.Inserted += res.InsertedCount
	c.Matched += res.MatchedCount
	c.Modified += res.ModifiedCount
	c.Deleted += res.DeletedCount
	c.Upserted += res.UpsertedCount
}

// Result maps collection names to the counts of applied writes.
type Result map[string]Counts

// Deleted returns the number of documents deleted from a collection.
func (r Result) Deleted(collection string) int64 {
	return r[collection].Deleted
}

// Modified returns the number of documents modified in a collection.
func (r Result) Modified(collection string) int64 {
	return r[collection].Modified
}

// Writer accumulates write models per collection and flushes them as
// bounded bulk writes. A Writer is single-use per flush cycle and is not
// safe for concurrent use; each invocation of a mechanism builds its own.
type Writer struct {
	db     *mongo.Database
	limit  int
	order  []string
	queues map[string][]mongo.WriteModel
}

// NewWriter creates a Writer over the given database.
func NewWriter(db *mongo.Database) *Writer {
	return &Writer{
		db:     db,
		limit:  MaxOps,
		queues: make(map[string][]mongo.WriteModel),
	}
}

// Queue appends write models for a collection. Collections are flushed in
// first-queued order.
func (w *Writer) Queue(collection string, models ...mongo.WriteModel) {
	if len(models) == 0 {
		return
	}
	if _, ok := w.queues[collection]; !ok {
		w.order = append(w.order, collection)
	}
	w.queues[collection] = append(w.queues[collection], models...)
}

// Pending returns the total number of queued write models.
func (w *Writer) Pending() int {
	n := 0
	for _, q := range w.queues {
		n += len(q)
	}
	return n
}

// Flush executes all queued models as unordered bulk writes, chunked at
// MaxOps per call. It returns per-collection counts. On error the partial
// result is returned alongside it; the writer is emptied either way, so a
// retry must re-derive its mutations (every caller's phases are designed
// to tolerate that).
func (w *Writer) Flush(ctx context.Context) (Result, error) {
	result := make(Result, len(w.order))
	opts := options.BulkWrite().SetOrdered(false)

	defer func() {
		w.order = nil
		w.queues = make(map[string][]mongo.WriteModel)
	}()

	for _, coll := range w.order {
		counts := result[coll]
		for _, models := range chunk(w.queues[coll], w.limit) {
			res, err := w.db.Collection(coll).BulkWrite(ctx, models, opts)
			if res != nil {
				counts.add(res)
			}
			if err != nil {
				result[coll] = counts
				return result, err
			}
		}
		result[coll] = counts
	}
	return result, nil
}

// chunk splits models into slices of at most size elements.
func chunk(models []mongo.WriteModel, size int) [][]mongo.WriteModel {
	if len(models) == 0 {
		return nil
	}
	chunks := make([][]mongo.WriteModel, 0, (len(models)+size-1)/size)
	for start := 0; start < len(models); start += size {
		end := start + size
		if end > len(models) {
			end = len(models)
		}
		chunks = append(chunks, models[start:end])
	}
	return chunks
}
