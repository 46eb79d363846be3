package content

import (
	"strings"

	"github.com/google/uuid"
)

// UniqueToken returns an opaque random token suitable for slugs.
func UniqueToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewIdentifier derives a slug from the content type and a token.
func NewIdentifier(contentType, token string) string {
	return contentType + "_" + token
}

// DuplicateIdentifier replaces the last "_" separated segment of identifier
// with token, so "page_home_abc" becomes "page_home_<token>".
func DuplicateIdentifier(identifier, token string) string {
	parts := strings.Split(identifier, "_")
	parts = parts[:len(parts)-1]
	parts = append(parts, token)
	return strings.Join(parts, "_")
}
