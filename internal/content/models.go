package content

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Status is the publication state of a content record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRevision  Status = "revision"
	StatusPublished Status = "published"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRevision, StatusPublished:
		return true
	}
	return false
}

// Statuses lists the known statuses in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusRevision, StatusPublished}
}

// Default content types. Other types may be contributed through the
// document registry.
const (
	TypePage     = "page"
	TypeTemplate = "template"
	TypeSection  = "section"
)

// GlobalStoreID is the default (all stores) scope.
const GlobalStoreID = 0

// Content is the persisted page-builder record.
type Content struct {
	ID           int64     `json:"id" bson:"_id"`
	Type         string    `json:"type" bson:"type"`
	Status       Status    `json:"status" bson:"status"`
	Title        string    `json:"title" bson:"title"`
	Identifier   string    `json:"identifier" bson:"identifier"`
	StoreIDs     []int     `json:"storeIds" bson:"storeIds"`
	AuthorID     string    `json:"authorId,omitempty" bson:"authorId,omitempty"`
	LastEditorID string    `json:"lastEditorId,omitempty" bson:"lastEditorId,omitempty"`
	Elements     string    `json:"elements,omitempty" bson:"elements,omitempty"`
	Settings     string    `json:"settings,omitempty" bson:"settings,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`

	orig *snapshot
}

// snapshot holds the field values as they were when the record was loaded.
type snapshot struct {
	Type       string
	Status     Status
	Title      string
	Identifier string
	StoreIDs   []int
	Elements   string
	Settings   string
}

// SetOrigData records the current field values as the change-detection
// baseline.
func (c *Content) SetOrigData() {
	c.orig = &snapshot{
		Type:       c.Type,
		Status:     c.Status,
		Title:      c.Title,
		Identifier: c.Identifier,
		StoreIDs:   slices.Clone(c.StoreIDs),
		Elements:   c.Elements,
		Settings:   c.Settings,
	}
}

// OrigStatus returns the status from the loaded baseline, or "" when the
// record has no baseline (new object).
func (c *Content) OrigStatus() Status {
	if c.orig == nil {
		return ""
	}
	return c.orig.Status
}

// IsObjectNew reports whether the record has never been persisted.
func (c *Content) IsObjectNew() bool {
	return c.ID == 0
}

// HasChanged reports whether the named field differs from the baseline.
// Fields without a baseline are always considered changed.
func (c *Content) HasChanged(field string) bool {
	if c.orig == nil {
		return true
	}
	switch field {
	case "type":
		return c.orig.Type != c.Type
	case "status":
		return c.orig.Status != c.Status
	case "title":
		return c.orig.Title != c.Title
	case "identifier":
		return c.orig.Identifier != c.Identifier
	case "store_id":
		return !slices.Equal(c.orig.StoreIDs, c.StoreIDs)
	case "elements":
		return c.orig.Elements != c.Elements
	case "settings":
		return c.orig.Settings != c.Settings
	}
	return true
}

// UniqueIdentity keys a record by id and store scope.
func (c *Content) UniqueIdentity() string {
	stores := make([]string, 0, len(c.StoreIDs))
	for _, s := range c.StoreIDs {
		stores = append(stores, strconv.Itoa(s))
	}
	return fmt.Sprintf("%d_%s", c.ID, strings.Join(stores, "-"))
}

// RoleName returns the permission key guarding the given action for this
// content's type, e.g. "pagebuilder::page_publish".
func (c *Content) RoleName(action string) string {
	return RoleName(c.Type, action)
}

// RoleName builds a permission key for a content type and action.
func RoleName(contentType, action string) string {
	return "pagebuilder::" + contentType + "_" + action
}

// Clone returns a copy without the loaded baseline.
func (c *Content) Clone() *Content {
	cp := *c
	cp.StoreIDs = slices.Clone(c.StoreIDs)
	cp.orig = nil
	return &cp
}
