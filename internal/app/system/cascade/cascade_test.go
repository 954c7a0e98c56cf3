package cascade_test

import (
	"errors"
	"testing"

	userstore "github.com/parleyhq/parley/internal/app/store/users"
	"github.com/parleyhq/parley/internal/app/system/cascade"
	"github.com/parleyhq/parley/internal/domain/models"
	"github.com/parleyhq/parley/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// seedWorkspace builds a workspace with two channels, messages in each,
// and three members, returning the owner and the workspace.
func seedWorkspace(t *testing.T, f *testutil.Fixtures) (models.User, models.Workspace) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := f.CreateUser(ctx, "owner@test.com", "Owner")
	member := f.CreateUser(ctx, "member@test.com", "Member")
	admin := f.CreateUser(ctx, "admin@test.com", "Admin")

	ws := f.CreateWorkspace(ctx, "Doomed", owner.ID)
	general := f.CreateChannel(ctx, ws.ID, "general")
	random := f.CreateChannel(ctx, ws.ID, "random")

	f.CreateMembership(ctx, ws.ID, owner.ID, models.RoleOwner)
	f.CreateMembership(ctx, ws.ID, member.ID, models.RoleMember)
	f.CreateMembership(ctx, ws.ID, admin.ID, models.RoleAdmin)

	f.CreateMessage(ctx, general.ID, ws.ID, owner.ID, "hello")
	f.CreateMessage(ctx, general.ID, ws.ID, member.ID, "hi")
	f.CreateMessage(ctx, random.ID, ws.ID, admin.ID, "anyone here?")

	return owner, ws
}

func TestDelete_RemovesEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	owner, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := cascade.New(db, zap.NewNop())
	res, err := o.Delete(ctx, ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if res.MessagesDeleted != 3 {
		t.Errorf("messages deleted: got %d, want 3", res.MessagesDeleted)
	}
	if res.ChannelsDeleted != 2 {
		t.Errorf("channels deleted: got %d, want 2", res.ChannelsDeleted)
	}
	if res.MembershipsDeleted != 3 {
		t.Errorf("memberships deleted: got %d, want 3", res.MembershipsDeleted)
	}

	for _, coll := range []string{"messages", "channels", "memberships"} {
		if n := f.CountDocs(ctx, coll, bson.M{"workspace_id": ws.ID}); n != 0 {
			t.Errorf("%s remaining: got %d, want 0", coll, n)
		}
	}
	if n := f.CountDocs(ctx, "workspaces", bson.M{"_id": ws.ID}); n != 0 {
		t.Errorf("workspace document remaining: got %d, want 0", n)
	}

	// Back-references were pulled from every member.
	users := userstore.New(db)
	u, err := users.GetByID(ctx, owner.ID)
	if err != nil {
		t.Fatalf("load owner: %v", err)
	}
	if u.InWorkspace(ws.ID) {
		t.Error("owner still carries the workspace back-reference")
	}
}

func TestDelete_SecondInvocationReturnsZeroCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	owner, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	o := cascade.New(db, zap.NewNop())
	if _, err := o.Delete(ctx, ws.ID, owner.ID); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}

	res, err := o.Delete(ctx, ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if res.MessagesDeleted != 0 || res.ChannelsDeleted != 0 || res.MembershipsDeleted != 0 {
		t.Errorf("second delete counts: got %+v, want all zero", res)
	}
}

func TestDelete_NonOwnerIsRejectedWithoutMutation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	_, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	intruder := f.CreateUser(ctx, "intruder@test.com", "Intruder")
	f.CreateMembership(ctx, ws.ID, intruder.ID, models.RoleMember)

	o := cascade.New(db, zap.NewNop())
	_, err := o.Delete(ctx, ws.ID, intruder.ID)
	if !errors.Is(err, cascade.ErrNotOwner) {
		t.Fatalf("got err %v, want ErrNotOwner", err)
	}

	if n := f.CountDocs(ctx, "messages", bson.M{"workspace_id": ws.ID}); n != 3 {
		t.Errorf("messages after rejected delete: got %d, want 3", n)
	}
	if n := f.CountDocs(ctx, "workspaces", bson.M{"_id": ws.ID}); n != 1 {
		t.Errorf("workspace after rejected delete: got %d, want 1", n)
	}
}

func TestDelete_StrangerIsRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	_, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	stranger := f.CreateUser(ctx, "stranger@test.com", "Stranger")

	o := cascade.New(db, zap.NewNop())
	if _, err := o.Delete(ctx, ws.ID, stranger.ID); !errors.Is(err, cascade.ErrNotOwner) {
		t.Fatalf("got err %v, want ErrNotOwner", err)
	}
}

func TestReap_CleansUpAfterOutOfBandDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	_, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Simulate an out-of-band removal of the workspace document only.
	if _, err := db.Collection("workspaces").DeleteOne(ctx, bson.M{"_id": ws.ID}); err != nil {
		t.Fatalf("out-of-band delete failed: %v", err)
	}

	o := cascade.New(db, zap.NewNop())
	res := o.Reap(ctx, ws.ID)

	if res.MessagesDeleted != 3 {
		t.Errorf("messages deleted: got %d, want 3", res.MessagesDeleted)
	}
	if res.ChannelsDeleted != 2 {
		t.Errorf("channels deleted: got %d, want 2", res.ChannelsDeleted)
	}
	if res.MembershipsDeleted != 3 {
		t.Errorf("memberships deleted: got %d, want 3", res.MembershipsDeleted)
	}

	for _, coll := range []string{"messages", "channels", "memberships"} {
		if n := f.CountDocs(ctx, coll, bson.M{"workspace_id": ws.ID}); n != 0 {
			t.Errorf("%s remaining after reap: got %d, want 0", coll, n)
		}
	}
}

func TestDelete_FinishesPartialRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	owner, ws := seedWorkspace(t, f)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Simulate a crash after the channel phase: channels are gone but
	// their messages and the memberships survive.
	if _, err := db.Collection("channels").DeleteMany(ctx, bson.M{"workspace_id": ws.ID}); err != nil {
		t.Fatalf("partial-state setup failed: %v", err)
	}

	o := cascade.New(db, zap.NewNop())
	res, err := o.Delete(ctx, ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// The workspace-wide catch-all still finds the orphaned messages.
	if res.MessagesDeleted != 3 {
		t.Errorf("messages deleted: got %d, want 3", res.MessagesDeleted)
	}
	if res.ChannelsDeleted != 0 {
		t.Errorf("channels deleted: got %d, want 0", res.ChannelsDeleted)
	}
	if res.MembershipsDeleted != 3 {
		t.Errorf("memberships deleted: got %d, want 3", res.MembershipsDeleted)
	}
}
