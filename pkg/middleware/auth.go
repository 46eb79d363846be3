package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/authz"
)

// ClaimsKey is the gin context key holding the verified claims map.
const ClaimsKey = "claims"

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// FirstOf tries verifiers in order and returns the first success.
type FirstOf []Verifier

func (f FirstOf) Verify(ctx context.Context, raw string) (Token, error) {
	var errs []error
	for _, v := range f {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// ClaimsHook runs after a token was verified, e.g. to record the editor.
type ClaimsHook func(ctx context.Context, claims map[string]interface{})

// AuthMiddleware verifies Bearer tokens and stores the claims both under
// ClaimsKey and on the request context (authz.WithClaims).
func AuthMiddleware(ver Verifier, hooks ...ClaimsHook) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil || claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set(ClaimsKey, claims)
		ctx := authz.WithClaims(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(ctx)
		for _, h := range hooks {
			h(ctx, claims)
		}
		c.Next()
	}
}

// RequirePermission aborts with 403 unless az grants permission.
func RequirePermission(az authz.Authorizer, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !az.IsAllowed(c.Request.Context(), permission) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Sorry, you need permissions to view this content."})
			return
		}
		c.Next()
	}
}

// subjectKey picks the rate-limit key: the authenticated subject when
// present, otherwise the client IP.
func subjectKey(c *gin.Context) string {
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if sub, ok := cm["sub"].(string); ok && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
