package presence_test

import (
	"testing"
	"time"

	userstore "github.com/parleyhq/parley/internal/app/store/users"
	"github.com/parleyhq/parley/internal/app/system/presence"
	"github.com/parleyhq/parley/internal/domain/models"
	"github.com/parleyhq/parley/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestImplied(t *testing.T) {
	now := time.Now().UTC()
	idle := presence.DefaultIdleAfter
	away := presence.DefaultAwayAfter

	cases := []struct {
		name      string
		status    string
		heartbeat time.Time
		want      string
	}{
		{"fresh online stays online", models.StatusOnline, now.Add(-1 * time.Minute), models.StatusOnline},
		{"online just under idle threshold", models.StatusOnline, now.Add(-idle + time.Second), models.StatusOnline},
		{"online at idle threshold", models.StatusOnline, now.Add(-idle), models.StatusIdle},
		{"online past idle threshold", models.StatusOnline, now.Add(-11 * time.Minute), models.StatusIdle},
		{"online past away threshold skips idle", models.StatusOnline, now.Add(-21 * time.Minute), models.StatusAway},
		{"idle under away threshold stays idle", models.StatusIdle, now.Add(-15 * time.Minute), models.StatusIdle},
		{"idle at away threshold", models.StatusIdle, now.Add(-away), models.StatusAway},
		{"away never changes", models.StatusAway, now.Add(-3 * time.Hour), models.StatusAway},
		{"custom never changes", models.StatusCustom, now.Add(-3 * time.Hour), models.StatusCustom},
		{"idle with fresh heartbeat is not upgraded", models.StatusIdle, now, models.StatusIdle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := presence.Implied(tc.status, tc.heartbeat, now, idle, away)
			if got != tc.want {
				t.Errorf("Implied(%s, age %s): got %s, want %s",
					tc.status, now.Sub(tc.heartbeat), got, tc.want)
			}
		})
	}
}

func TestTick_DemotesStaleProfiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	fresh := f.CreateUserWithPresence(ctx, "fresh@test.com", models.StatusOnline, now.Add(-1*time.Minute))
	stale := f.CreateUserWithPresence(ctx, "stale@test.com", models.StatusOnline, now.Add(-11*time.Minute))
	gone := f.CreateUserWithPresence(ctx, "gone@test.com", models.StatusIdle, now.Add(-25*time.Minute))
	custom := f.CreateUserWithPresence(ctx, "custom@test.com", models.StatusCustom, now.Add(-1*time.Hour))

	ev := presence.NewEvaluator(db, zap.NewNop(), 0, 0)
	demoted, err := ev.Tick(ctx, now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if demoted != 2 {
		t.Errorf("demoted: got %d, want 2", demoted)
	}

	users := userstore.New(db)
	assertStatus := func(id primitive.ObjectID, label, want string) {
		t.Helper()
		u, err := users.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("load %s user: %v", label, err)
		}
		if u.Status != want {
			t.Errorf("%s user status: got %s, want %s", label, u.Status, want)
		}
	}

	assertStatus(fresh.ID, "fresh", models.StatusOnline)
	assertStatus(stale.ID, "stale online", models.StatusIdle)
	assertStatus(gone.ID, "stale idle", models.StatusAway)
	assertStatus(custom.ID, "custom", models.StatusCustom)
}

func TestTick_IsFixedPoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	f.CreateUserWithPresence(ctx, "a@test.com", models.StatusOnline, now.Add(-11*time.Minute))
	f.CreateUserWithPresence(ctx, "b@test.com", models.StatusOnline, now.Add(-25*time.Minute))

	ev := presence.NewEvaluator(db, zap.NewNop(), 0, 0)

	first, err := ev.Tick(ctx, now)
	if err != nil {
		t.Fatalf("first Tick failed: %v", err)
	}
	if first != 2 {
		t.Fatalf("first tick demoted: got %d, want 2", first)
	}

	second, err := ev.Tick(ctx, now)
	if err != nil {
		t.Fatalf("second Tick failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second tick demoted: got %d, want 0", second)
	}
}

func TestTick_FreshHeartbeatPreventsDemotion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	u := f.CreateUserWithPresence(ctx, "racer@test.com", models.StatusOnline, now.Add(-11*time.Minute))

	users := userstore.New(db)
	// A heartbeat lands before the sweep reaches this profile.
	if err := users.Heartbeat(ctx, u.ID); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	ev := presence.NewEvaluator(db, zap.NewNop(), 0, 0)
	demoted, err := ev.Tick(ctx, now)
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if demoted != 0 {
		t.Errorf("demoted: got %d, want 0", demoted)
	}

	got, err := users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if got.Status != models.StatusOnline {
		t.Errorf("status after heartbeat: got %s, want online", got.Status)
	}
}
