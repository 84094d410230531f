package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/models"
)

func testSessionStore(t *testing.T) *auth.SessionStore {
	t.Helper()
	secret := []byte("0123456789abcdef0123456789abcdef")
	store, err := auth.NewSessionStore(auth.DefaultSessionConfig(secret, false), zerolog.Nop())
	if err != nil {
		t.Fatalf("create session store: %v", err)
	}
	return store
}

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(AuthMiddleware(testSessionStore(t), zerolog.Nop()))
	router.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareAcceptsSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := testSessionStore(t)
	user := &auth.SessionUser{ID: uuid.New(), OrgID: uuid.New(), Role: models.UserRoleMember}

	// Establish a session cookie first.
	seedReq := httptest.NewRequest(http.MethodGet, "/", nil)
	seedRec := httptest.NewRecorder()
	if err := store.SetUser(seedReq, seedRec, user); err != nil {
		t.Fatalf("set user: %v", err)
	}

	router := gin.New()
	router.Use(AuthMiddleware(store, zerolog.Nop()))
	router.GET("/protected", func(c *gin.Context) {
		got := RequireUser(c)
		if got == nil {
			return
		}
		if got.ID != user.ID {
			t.Errorf("context user mismatch: got %s want %s", got.ID, user.ID)
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, c := range seedRec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		role models.UserRole
		want int
	}{
		{"admin allowed", models.UserRoleAdmin, http.StatusOK},
		{"member forbidden", models.UserRoleMember, http.StatusForbidden},
		{"viewer forbidden", models.UserRoleViewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set(string(UserContextKey), &auth.SessionUser{ID: uuid.New(), Role: tt.role})
			})
			router.Use(RequireRole(models.UserRoleAdmin))
			router.GET("/admin", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
