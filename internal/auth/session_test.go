package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/models"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	secret := []byte("0123456789abcdef0123456789abcdef")
	store, err := NewSessionStore(DefaultSessionConfig(secret, false), zerolog.Nop())
	if err != nil {
		t.Fatalf("create session store: %v", err)
	}
	return store
}

func TestNewSessionStoreRejectsShortSecret(t *testing.T) {
	_, err := NewSessionStore(DefaultSessionConfig([]byte("short"), false), zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestSessionUserRoundTrip(t *testing.T) {
	store := newTestSessionStore(t)

	user := &SessionUser{
		ID:              uuid.New(),
		OrgID:           uuid.New(),
		Email:           "admin@example.com",
		Role:            models.UserRoleAdmin,
		AuthenticatedAt: time.Now().Truncate(time.Second),
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := store.SetUser(req, rec, user); err != nil {
		t.Fatalf("set user: %v", err)
	}

	// Replay the cookie on a fresh request.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req2.AddCookie(c)
	}

	got, err := store.GetUser(req2)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != user.ID || got.OrgID != user.OrgID || got.Email != user.Email || got.Role != user.Role {
		t.Errorf("session user mismatch: got %+v want %+v", got, user)
	}
	if !store.IsAuthenticated(req2) {
		t.Error("expected session to be authenticated")
	}
}

func TestGetUserWithoutSession(t *testing.T) {
	store := newTestSessionStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := store.GetUser(req); err == nil {
		t.Fatal("expected error for missing user")
	}
	if store.IsAuthenticated(req) {
		t.Error("empty request should not be authenticated")
	}
}

func TestOIDCStateSetAndClear(t *testing.T) {
	store := newTestSessionStore(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := store.SetOIDCState(req, rec, "state-123"); err != nil {
		t.Fatalf("set state: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req2.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()

	state, err := store.GetOIDCState(req2, rec2)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state != "state-123" {
		t.Errorf("expected state-123, got %s", state)
	}

	// State is one-shot; the updated cookie no longer carries it.
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec2.Result().Cookies() {
		req3.AddCookie(c)
	}
	if _, err := store.GetOIDCState(req3, httptest.NewRecorder()); err == nil {
		t.Error("expected error after state was consumed")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	if a == b {
		t.Error("expected distinct state values")
	}
	if len(a) < 32 {
		t.Errorf("state too short: %d", len(a))
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("expected password to verify")
	}
	if VerifyPassword(hash, "wrong password!") {
		t.Error("expected wrong password to fail")
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected error for short password")
	}
}
