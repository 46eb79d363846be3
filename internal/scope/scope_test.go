package scope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	resolver := ContextResolver{Default: 1}
	g := gin.New()
	g.Use(Middleware())
	g.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, strconv.Itoa(resolver.CurrentStoreID(c.Request.Context())))
	})

	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"default", "", "", "1"},
		{"header", "3", "", "3"},
		{"query", "", "4", "4"},
		{"header wins", "5", "6", "5"},
		{"invalid", "abc", "", "1"},
		{"negative", "-2", "", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/"
			if tt.query != "" {
				url += "?store=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tt.header != "" {
				req.Header.Set("X-Store-Id", tt.header)
			}
			w := httptest.NewRecorder()
			g.ServeHTTP(w, req)
			require.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestFixed(t *testing.T) {
	require.Equal(t, 7, Fixed(7).CurrentStoreID(context.TODO()))
}
