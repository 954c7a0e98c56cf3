package workspacestore_test

import (
	"errors"
	"testing"

	workspacestore "github.com/parleyhq/parley/internal/app/store/workspaces"
	"github.com/parleyhq/parley/internal/domain/models"
	"github.com/parleyhq/parley/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_GeneratesInviteCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workspacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	ws, err := store.Create(ctx, models.Workspace{
		Name:     "Acme",
		OwnerIDs: []primitive.ObjectID{owner},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if ws.ID.IsZero() {
		t.Error("expected generated ID")
	}
	if ws.InviteCode == "" {
		t.Error("expected generated invite code")
	}
	if ws.NameCI != "acme" {
		t.Errorf("name_ci: got %q, want %q", ws.NameCI, "acme")
	}

	found, err := store.GetByInviteCode(ctx, ws.InviteCode)
	if err != nil {
		t.Fatalf("GetByInviteCode failed: %v", err)
	}
	if found.ID != ws.ID {
		t.Errorf("invite lookup returned wrong workspace")
	}
}

func TestCreate_RejectsNoOwners(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workspacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Workspace{Name: "Ownerless"}); err == nil {
		t.Fatal("expected error for workspace without owners")
	}
}

func TestAddOwner_EnforcesLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workspacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws, err := store.Create(ctx, models.Workspace{
		Name:     "Crowded",
		OwnerIDs: []primitive.ObjectID{primitive.NewObjectID()},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Two more owners fit within the bound.
	for i := 1; i < models.MaxOwners; i++ {
		if err := store.AddOwner(ctx, ws.ID, primitive.NewObjectID()); err != nil {
			t.Fatalf("AddOwner %d failed: %v", i, err)
		}
	}

	err = store.AddOwner(ctx, ws.ID, primitive.NewObjectID())
	if !errors.Is(err, workspacestore.ErrOwnerLimit) {
		t.Fatalf("got err %v, want ErrOwnerLimit", err)
	}

	got, err := store.GetByID(ctx, ws.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.OwnerIDs) != models.MaxOwners {
		t.Errorf("owner count: got %d, want %d", len(got.OwnerIDs), models.MaxOwners)
	}
}

func TestAddOwner_MissingWorkspace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workspacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.AddOwner(ctx, primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, workspacestore.ErrNotFound) {
		t.Fatalf("got err %v, want ErrNotFound", err)
	}
}

func TestDelete_ReturnsCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := workspacestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws, err := store.Create(ctx, models.Workspace{
		Name:     "Short-lived",
		OwnerIDs: []primitive.ObjectID{primitive.NewObjectID()},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.Delete(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: got %d, want 1", n)
	}

	// Deleting again is a zero-effect success.
	n, err = store.Delete(ctx, ws.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second deleted count: got %d, want 0", n)
	}
}
