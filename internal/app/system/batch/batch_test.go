package batch_test

import (
	"fmt"
	"testing"

	"github.com/parleyhq/parley/internal/app/system/batch"
	"github.com/parleyhq/parley/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func insertModel(i int) mongo.WriteModel {
	return mongo.NewInsertOneModel().SetDocument(bson.M{"n": i})
}

func TestFlush_EmptyWriter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w := batch.NewWriter(db)
	res, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected empty result, got %v", res)
	}
}

func TestFlush_SingleCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w := batch.NewWriter(db)
	for i := 0; i < 10; i++ {
		w.Queue("things", insertModel(i))
	}
	if w.Pending() != 10 {
		t.Fatalf("Pending: got %d, want 10", w.Pending())
	}

	res, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := res["things"].Inserted; got != 10 {
		t.Errorf("inserted: got %d, want 10", got)
	}
	if w.Pending() != 0 {
		t.Errorf("writer not emptied after flush: %d pending", w.Pending())
	}
}

func TestFlush_ChunksLargeQueues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// More than one chunk's worth of operations on one collection.
	total := batch.MaxOps + 137
	w := batch.NewWriter(db)
	for i := 0; i < total; i++ {
		w.Queue("things", insertModel(i))
	}

	res, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := res["things"].Inserted; got != int64(total) {
		t.Errorf("inserted: got %d, want %d", got, total)
	}

	f := testutil.NewFixtures(t, db)
	if n := f.CountDocs(ctx, "things", bson.M{}); n != int64(total) {
		t.Errorf("document count: got %d, want %d", n, total)
	}
}

func TestFlush_MultipleCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w := batch.NewWriter(db)
	for i := 0; i < 3; i++ {
		w.Queue("alpha", insertModel(i))
	}
	for i := 0; i < 5; i++ {
		w.Queue("beta", insertModel(i))
	}

	res, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if res["alpha"].Inserted != 3 {
		t.Errorf("alpha inserted: got %d, want 3", res["alpha"].Inserted)
	}
	if res["beta"].Inserted != 5 {
		t.Errorf("beta inserted: got %d, want 5", res["beta"].Inserted)
	}
}

func TestFlush_MixedOperations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("things")
	for i := 0; i < 4; i++ {
		if _, err := coll.InsertOne(ctx, bson.M{"_id": fmt.Sprintf("doc-%d", i), "n": i}); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}

	w := batch.NewWriter(db)
	w.Queue("things", mongo.NewUpdateOneModel().
		SetFilter(bson.M{"_id": "doc-0"}).
		SetUpdate(bson.M{"$set": bson.M{"n": 100}}))
	w.Queue("things", mongo.NewDeleteManyModel().
		SetFilter(bson.M{"n": bson.M{"$gte": 2}}))

	res, err := w.Flush(ctx)
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := res.Modified("things"); got != 1 {
		t.Errorf("modified: got %d, want 1", got)
	}
	if got := res.Deleted("things"); got != 2 {
		t.Errorf("deleted: got %d, want 2", got)
	}
}
