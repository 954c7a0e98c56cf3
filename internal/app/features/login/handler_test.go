package login_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/parleyhq/parley/internal/app/features/login"
	"github.com/parleyhq/parley/internal/app/system/auth"
	"github.com/parleyhq/parley/internal/testutil"
	"go.uber.org/zap"
)

func newHandler(t *testing.T) (*login.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager("test-session-key-0123456789ABCDEFGH", "parley-test", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	return login.NewHandler(db, sm, zap.NewNop()), testutil.NewFixtures(t, db)
}

func TestServeRegister_CreatesAccount(t *testing.T) {
	h, _ := newHandler(t)

	req := testutil.NewRequest("POST", "/api/register",
		`{"email":"new@test.com","display_name":"Newbie","password":"hunter2hunter2"}`)
	rec := testutil.NewRecorder()

	h.ServeRegister(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	var resp struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.ID == "" || resp.Email != "new@test.com" {
		t.Errorf("response: got %+v", resp)
	}
	if resp.Status != "online" {
		t.Errorf("status: got %q, want online", resp.Status)
	}
}

func TestServeRegister_RejectsWeakInput(t *testing.T) {
	h, _ := newHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"display_name":"X","password":"longenough"}`},
		{"bad email", `{"email":"nope","display_name":"X","password":"longenough"}`},
		{"short password", `{"email":"x@test.com","display_name":"X","password":"short"}`},
		{"missing name", `{"email":"x@test.com","password":"longenough"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.ServeRegister(rec, testutil.NewRequest("POST", "/api/register", tc.body))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestServeLogin_RoundTrip(t *testing.T) {
	h, _ := newHandler(t)

	reg := testutil.NewRequest("POST", "/api/register",
		`{"email":"known@test.com","display_name":"Known","password":"correct-horse"}`)
	rec := testutil.NewRecorder()
	h.ServeRegister(rec, reg)
	rec.AssertStatus(t, http.StatusCreated)

	rec = testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest("POST", "/api/login",
		`{"email":"known@test.com","password":"correct-horse"}`))
	rec.AssertStatus(t, http.StatusOK)

	// Wrong password and unknown account look identical.
	rec = testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest("POST", "/api/login",
		`{"email":"known@test.com","password":"wrong"}`))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	h.ServeLogin(rec, testutil.NewRequest("POST", "/api/login",
		`{"email":"unknown@test.com","password":"whatever"}`))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
