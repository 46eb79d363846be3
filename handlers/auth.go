package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/config"
	"github.com/gogotex/pagebuilder/internal/sessions"
	"github.com/gogotex/pagebuilder/internal/tokens"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandler exchanges an upstream identity for pagebuilder access
// tokens and manages their refresh sessions.
type AuthHandler struct {
	cfg      *config.Config
	sessions *sessions.Service
	revoker  tokens.Revoker
}

func NewAuthHandler(cfg *config.Config, s *sessions.Service, r tokens.Revoker) *AuthHandler {
	return &AuthHandler{cfg: cfg, sessions: s, revoker: r}
}

// Register routes under /auth. Token and logout need an authenticated
// request; refresh authenticates with the refresh token itself.
func (h *AuthHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/token", auth, h.Token)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", auth, h.Logout)
}

func (h *AuthHandler) issue(c *gin.Context, sess *sessions.Session) {
	subject := tokens.Subject{Sub: sess.Sub, Name: sess.Name, Email: sess.Email, Roles: sess.Roles, Permissions: sess.Permissions}
	access, err := tokens.GenerateAccessToken(h.cfg, subject, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		logger.Errorf("generate access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": sess.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    int(h.cfg.JWT.AccessTokenTTL / time.Second),
	})
}

// Token mints an access token for the verified caller and starts a
// refresh session.
func (h *AuthHandler) Token(c *gin.Context) {
	claims, _ := authz.ClaimsFromContext(c.Request.Context())
	s := tokens.SubjectFromClaims(claims)
	if s.Sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
		return
	}
	sess, err := h.sessions.Start(c.Request.Context(), sessions.Session{
		Sub: s.Sub, Name: s.Name, Email: s.Email, Roles: s.Roles, Permissions: s.Permissions,
	}, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("start session for %s: %v", s.Sub, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	h.issue(c, sess)
}

// Refresh rotates the refresh token and returns a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	sess, err := h.sessions.Rotate(c.Request.Context(), req.RefreshToken, h.cfg.JWT.RefreshTokenTTL)
	if errors.Is(err, sessions.ErrInvalidRefresh) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("rotate session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh session"})
		return
	}
	h.issue(c, sess)
}

// Logout revokes the presented access token and ends the given refresh
// session, if any.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	claims, _ := authz.ClaimsFromContext(ctx)
	if jti, _ := claims["jti"].(string); jti != "" && h.revoker != nil {
		if err := h.revoker.Revoke(ctx, jti, tokens.RevocationTTL(claims)); err != nil {
			logger.Warnf("revoke access token: %v", err)
		}
	}
	if req.RefreshToken != "" {
		if err := h.sessions.End(ctx, req.RefreshToken); err != nil {
			logger.Errorf("end session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
