// Package authz answers permission questions for the content lifecycle.
// Permission keys look like "pagebuilder::page_publish".
package authz

import (
	"context"
	"strings"
)

// Authorizer is the authorization collaborator.
type Authorizer interface {
	IsAllowed(ctx context.Context, permission string) bool
}

type claimsKey struct{}

// WithClaims stores verified token claims on ctx.
func WithClaims(ctx context.Context, claims map[string]interface{}) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (map[string]interface{}, bool) {
	cm, ok := ctx.Value(claimsKey{}).(map[string]interface{})
	return cm, ok
}

// Subject returns the "sub" claim of the current request, or "".
func Subject(ctx context.Context) string {
	cm, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return sub
}

// ClaimsAuthorizer grants permissions listed in the "permissions" claim.
// The "admin" role (in "roles") and the "*" or "pagebuilder::*" permissions
// grant everything.
type ClaimsAuthorizer struct{}

func (ClaimsAuthorizer) IsAllowed(ctx context.Context, permission string) bool {
	cm, ok := ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range stringList(cm["roles"]) {
		if r == "admin" {
			return true
		}
	}
	for _, p := range stringList(cm["permissions"]) {
		if matches(p, permission) {
			return true
		}
	}
	return false
}

func matches(granted, requested string) bool {
	if granted == "*" || granted == requested {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, "*"); ok {
		return strings.HasPrefix(requested, prefix)
	}
	return false
}

// stringList accepts []string, []interface{} (decoded JSON) or a
// space-separated string (OAuth "scope" style).
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Fields(t)
	}
	return nil
}

// StaticAuthorizer grants a fixed set of permissions regardless of the
// request. Used by the CLI and tests.
type StaticAuthorizer map[string]bool

// AllowAll grants every permission.
func AllowAll() StaticAuthorizer { return StaticAuthorizer{"*": true} }

func (s StaticAuthorizer) IsAllowed(_ context.Context, permission string) bool {
	for granted, ok := range s {
		if ok && matches(granted, permission) {
			return true
		}
	}
	return false
}
