package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/pagebuilder/internal/authz"
)

// fakeToken implements Token
type fakeToken struct {
	data map[string]interface{}
}

func (t *fakeToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// fakeVerifier accepts exactly one raw token
type fakeVerifier struct {
	good string
	sub  string
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	if raw == f.good {
		return &fakeToken{data: map[string]interface{}{"sub": f.sub, "email": "test@example.com"}}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serveWithAuth(t *testing.T, ver Verifier, header string, hooks ...ClaimsHook) *httptest.ResponseRecorder {
	t.Helper()
	g := gin.New()
	g.GET("/", AuthMiddleware(ver, hooks...), func(c *gin.Context) {
		claims, ok := c.Get(ClaimsKey)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"claims": claims, "subject": authz.Subject(c.Request.Context())})
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serveWithAuth(t, &fakeVerifier{good: "goodtoken", sub: "user1"}, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	for _, h := range []string{"BadHeader", "Bearer ", "Basic goodtoken"} {
		rw := serveWithAuth(t, &fakeVerifier{good: "goodtoken", sub: "user1"}, h)
		require.Equal(t, http.StatusUnauthorized, rw.Code, h)
	}
}

func TestAuthMiddleware_RejectedToken(t *testing.T) {
	rw := serveWithAuth(t, &fakeVerifier{good: "goodtoken", sub: "user1"}, "Bearer other")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "invalid token")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	var hooked string
	hook := func(ctx context.Context, claims map[string]interface{}) {
		hooked = authz.Subject(ctx)
	}
	rw := serveWithAuth(t, &fakeVerifier{good: "goodtoken", sub: "user1"}, "Bearer goodtoken", hook)

	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Contains(t, got, "claims")
	require.Equal(t, "user1", got["subject"])
	require.Equal(t, "user1", hooked)
}

func TestFirstOf(t *testing.T) {
	ver := FirstOf{&fakeVerifier{good: "a", sub: "from-a"}, &fakeVerifier{good: "b", sub: "from-b"}}

	rw := serveWithAuth(t, ver, "Bearer b")
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "from-b")

	rw = serveWithAuth(t, ver, "Bearer c")
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	_, err := FirstOf{}.Verify(context.Background(), "x")
	require.Error(t, err)
}

func TestRequirePermission(t *testing.T) {
	g := gin.New()
	g.GET("/grid", RequirePermission(authz.StaticAuthorizer{"pagebuilder::page_grid": true}, "pagebuilder::page_grid"), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.GET("/publish", RequirePermission(authz.StaticAuthorizer{"pagebuilder::page_grid": true}, "pagebuilder::page_publish"), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/grid", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/publish", nil))
	require.Equal(t, http.StatusForbidden, rw.Code)
}
