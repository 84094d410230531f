package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/models"
)

// AuthStore defines the user lookups the auth flows need.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByOIDCSubject(ctx context.Context, subject string) (*models.User, error)
}

// AuthHandler handles login, OIDC callback, and logout endpoints.
type AuthHandler struct {
	store    AuthStore
	sessions *auth.SessionStore
	oidc     *auth.OIDC // nil when OIDC is not configured
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. oidc may be nil, in which case
// only local login is available.
func NewAuthHandler(store AuthStore, sessions *auth.SessionStore, oidc *auth.OIDC, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store:    store,
		sessions: sessions,
		oidc:     oidc,
		logger:   logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublicRoutes registers auth routes on the engine.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.Engine) {
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", h.Login)
		authGroup.GET("/callback", h.Callback)
		authGroup.POST("/local-login", h.LocalLogin)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", h.Me)
	}
}

// Login redirects the browser to the OIDC provider.
// GET /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "OIDC is not configured"})
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate OIDC state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	if err := h.sessions.SetOIDCState(c.Request, c.Writer, state); err != nil {
		h.logger.Error().Err(err).Msg("failed to store OIDC state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}

	c.Redirect(http.StatusFound, h.oidc.AuthorizationURL(state))
}

// Callback completes the OIDC flow: it validates state, exchanges the code,
// verifies the ID token, and establishes a session for the matching user.
// GET /auth/callback?code=...&state=...
func (h *AuthHandler) Callback(c *gin.Context) {
	if h.oidc == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "OIDC is not configured"})
		return
	}

	expectedState, err := h.sessions.GetOIDCState(c.Request, c.Writer)
	if err != nil || c.Query("state") != expectedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	token, err := h.oidc.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("OIDC code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	claims, err := h.oidc.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ID token verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	user, err := h.store.GetUserByOIDCSubject(c.Request.Context(), claims.Subject)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to look up user by subject")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	if user == nil {
		// First OIDC login for a provisioned user: match on email.
		user, err = h.store.GetUserByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to look up user by email")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
			return
		}
	}
	if user == nil {
		h.logger.Warn().Str("email", claims.Email).Msg("OIDC login for unknown user")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no account for this identity"})
		return
	}

	if err := h.establishSession(c, user); err != nil {
		return
	}

	respondData(c, http.StatusOK, gin.H{"user_id": user.ID, "email": user.Email}, "logged in")
}

// LocalLoginRequest is the request body for password login.
type LocalLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LocalLogin authenticates with email and password. Intended for the
// bootstrap admin account; regular users log in via OIDC.
// POST /auth/local-login
func (h *AuthHandler) LocalLogin(c *gin.Context) {
	var req LocalLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}
	if user == nil || user.PasswordHash == "" || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := h.establishSession(c, user); err != nil {
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Msg("local login")
	respondData(c, http.StatusOK, gin.H{"user_id": user.ID, "email": user.Email}, "logged in")
}

func (h *AuthHandler) establishSession(c *gin.Context, user *models.User) error {
	err := h.sessions.SetUser(c.Request, c.Writer, &auth.SessionUser{
		ID:              user.ID,
		OrgID:           user.OrgID,
		Email:           user.Email,
		Role:            user.Role,
		AuthenticatedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to establish session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to establish session"})
	}
	return err
}

// Logout clears the session cookie.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.ClearUser(c.Request, c.Writer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session")
	}
	respondData(c, http.StatusOK, nil, "logged out")
}

// Me returns the current session user.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.sessions.GetUser(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"user_id": user.ID,
		"org_id":  user.OrgID,
		"email":   user.Email,
		"role":    user.Role,
	}, "session retrieved")
}
