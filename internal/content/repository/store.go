package repository

import (
	"context"

	"github.com/gogotex/pagebuilder/internal/content"
)

// Store is the persistence collaborator behind Repository.
//
// Save inserts when c.ID is zero (assigning ID and CreatedAt) and updates
// otherwise; both set UpdatedAt. Load and Delete return content.ErrNotFound
// for unknown ids. A duplicate identifier is a content.ErrValidation.
type Store interface {
	Load(ctx context.Context, id int64) (*content.Content, error)
	Save(ctx context.Context, c *content.Content) error
	Delete(ctx context.Context, c *content.Content) error
	List(ctx context.Context, sc content.SearchCriteria) ([]*content.Content, int, error)
}

// column maps a criteria field to the storage column name.
var column = map[string]string{
	"id":             "id",
	"type":           "type",
	"status":         "status",
	"title":          "title",
	"identifier":     "identifier",
	"store_id":       "store_ids",
	"author_id":      "author_id",
	"last_editor_id": "last_editor_id",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
}
