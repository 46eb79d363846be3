// Package scope resolves the storefront (store id) a request runs in.
package scope

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Resolver is the store-scope collaborator.
type Resolver interface {
	CurrentStoreID(ctx context.Context) int
}

type storeKey struct{}

// WithStoreID stores the current store id on ctx.
func WithStoreID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, storeKey{}, id)
}

// ContextResolver reads the store id placed on the context by Middleware and
// falls back to Default.
type ContextResolver struct {
	Default int
}

func (r ContextResolver) CurrentStoreID(ctx context.Context) int {
	if id, ok := ctx.Value(storeKey{}).(int); ok {
		return id
	}
	return r.Default
}

// Fixed always resolves to the same store.
type Fixed int

func (f Fixed) CurrentStoreID(context.Context) int { return int(f) }

// Middleware reads the store id from the X-Store-Id header or the "store"
// query parameter. Invalid values are ignored.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Store-Id")
		if raw == "" {
			raw = c.Query("store")
		}
		if raw != "" {
			if id, err := strconv.Atoi(raw); err == nil && id >= 0 {
				c.Request = c.Request.WithContext(WithStoreID(c.Request.Context(), id))
			}
		}
		c.Next()
	}
}
