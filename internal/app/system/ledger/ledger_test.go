package ledger_test

import (
	"errors"
	"testing"

	labelstore "github.com/parleyhq/parley/internal/app/store/labels"
	"github.com/parleyhq/parley/internal/app/system/ledger"
	"github.com/parleyhq/parley/internal/domain/models"
	"github.com/parleyhq/parley/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func message(labels ...string) models.Message {
	return models.Message{Labels: labels}
}

func TestContentCreated_NewLabel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	if err := l.ContentCreated(ctx, message("#React", "golang")); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}

	labels := labelstore.New(db)
	react, err := labels.Get(ctx, "react")
	if err != nil {
		t.Fatalf("Get react failed: %v", err)
	}
	if react.Count != 1 {
		t.Errorf("react count: got %d, want 1", react.Count)
	}
	if react.DisplayName != "React" {
		t.Errorf("react display: got %q, want %q", react.DisplayName, "React")
	}
	if react.FirstUsed.IsZero() || react.LastUsed.IsZero() {
		t.Error("first/last used not stamped")
	}

	if _, err := labels.Get(ctx, "golang"); err != nil {
		t.Errorf("Get golang failed: %v", err)
	}
}

func TestContentCreated_ConcurrentFirstUseConverges(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	for i := 0; i < 3; i++ {
		if err := l.ContentCreated(ctx, message("release")); err != nil {
			t.Fatalf("ContentCreated %d failed: %v", i, err)
		}
	}

	entry, err := labelstore.New(db).Get(ctx, "release")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Count != 3 {
		t.Errorf("count: got %d, want 3", entry.Count)
	}

	f := testutil.NewFixtures(t, db)
	if n := f.CountDocs(ctx, "labels", bson.M{}); n != 1 {
		t.Errorf("entries for one label: got %d, want 1", n)
	}
}

func TestContentUpdated_SymmetricDiff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	before := message("keep", "drop")
	after := message("keep", "add")

	if err := l.ContentCreated(ctx, before); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}
	if err := l.ContentUpdated(ctx, before, after); err != nil {
		t.Fatalf("ContentUpdated failed: %v", err)
	}

	labels := labelstore.New(db)

	keep, err := labels.Get(ctx, "keep")
	if err != nil {
		t.Fatalf("Get keep failed: %v", err)
	}
	if keep.Count != 1 {
		t.Errorf("unchanged label count: got %d, want 1", keep.Count)
	}

	added, err := labels.Get(ctx, "add")
	if err != nil {
		t.Fatalf("Get add failed: %v", err)
	}
	if added.Count != 1 {
		t.Errorf("added label count: got %d, want 1", added.Count)
	}

	// Dropped label reached zero and was reaped.
	if _, err := labels.Get(ctx, "drop"); !errors.Is(err, labelstore.ErrNotFound) {
		t.Errorf("dropped label: got err %v, want ErrNotFound", err)
	}
}

func TestContentUpdated_IdenticalSetsAreNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	msg := message("stable")

	if err := l.ContentCreated(ctx, msg); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}
	// Same set, different order and casing still normalizes identically.
	if err := l.ContentUpdated(ctx, msg, message("Stable")); err != nil {
		t.Fatalf("ContentUpdated failed: %v", err)
	}

	entry, err := labelstore.New(db).Get(ctx, "stable")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("count after no-op update: got %d, want 1", entry.Count)
	}
}

func TestContentDeleted_ReapsAtZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	labels := labelstore.New(db)

	// Two uses, then remove them one at a time.
	if err := l.ContentCreated(ctx, message("react")); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}
	if err := l.ContentCreated(ctx, message("react")); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}

	if err := l.ContentDeleted(ctx, message("react")); err != nil {
		t.Fatalf("ContentDeleted failed: %v", err)
	}
	entry, err := labels.Get(ctx, "react")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("count after first delete: got %d, want 1", entry.Count)
	}

	if err := l.ContentDeleted(ctx, message("react")); err != nil {
		t.Fatalf("ContentDeleted failed: %v", err)
	}
	if _, err := labels.Get(ctx, "react"); !errors.Is(err, labelstore.ErrNotFound) {
		t.Errorf("after count reached zero: got err %v, want ErrNotFound", err)
	}
}

func TestContentDeleted_MissingEntryIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	if err := l.ContentDeleted(ctx, message("never-seen")); err != nil {
		t.Fatalf("deleting content with an untracked label should succeed, got %v", err)
	}
}

func TestEditRoundTripIsNeutral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l := ledger.New(db, zap.NewNop())
	orig := message("pinned")
	edited := message("moved")

	if err := l.ContentCreated(ctx, orig); err != nil {
		t.Fatalf("ContentCreated failed: %v", err)
	}
	if err := l.ContentUpdated(ctx, orig, edited); err != nil {
		t.Fatalf("edit away failed: %v", err)
	}
	if err := l.ContentUpdated(ctx, edited, orig); err != nil {
		t.Fatalf("edit back failed: %v", err)
	}

	labels := labelstore.New(db)
	entry, err := labels.Get(ctx, "pinned")
	if err != nil {
		t.Fatalf("Get pinned failed: %v", err)
	}
	if entry.Count != 1 {
		t.Errorf("pinned count after round trip: got %d, want 1", entry.Count)
	}
	if _, err := labels.Get(ctx, "moved"); !errors.Is(err, labelstore.ErrNotFound) {
		t.Errorf("moved label should be reaped, got err %v", err)
	}
}

func TestRecompute_CorrectsDriftAndReapsStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := f.CreateUser(ctx, "author@test.com", "Author")
	ws := f.CreateWorkspace(ctx, "Recompute", user.ID)
	ch := f.CreateChannel(ctx, ws.ID, "general")

	// Live messages: two uses of "react", one of "golang".
	f.CreateMessage(ctx, ch.ID, ws.ID, user.ID, "a", "React")
	f.CreateMessage(ctx, ch.ID, ws.ID, user.ID, "b", "react", "golang")

	// Drifted ledger: react undercounted, plus an orphan entry.
	f.CreateLabel(ctx, "react", "React", 7)
	f.CreateLabel(ctx, "orphan", "Orphan", 3)

	l := ledger.New(db, zap.NewNop())
	changed, err := l.Recompute(ctx)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if changed == 0 {
		t.Error("expected recompute to report changes")
	}

	labels := labelstore.New(db)

	react, err := labels.Get(ctx, "react")
	if err != nil {
		t.Fatalf("Get react failed: %v", err)
	}
	if react.Count != 2 {
		t.Errorf("react count after recompute: got %d, want 2", react.Count)
	}

	golang, err := labels.Get(ctx, "golang")
	if err != nil {
		t.Fatalf("Get golang failed: %v", err)
	}
	if golang.Count != 1 {
		t.Errorf("golang count after recompute: got %d, want 1", golang.Count)
	}

	if _, err := labels.Get(ctx, "orphan"); !errors.Is(err, labelstore.ErrNotFound) {
		t.Errorf("orphan entry should be reaped, got err %v", err)
	}
}
