// Package revision keeps the append-only history of content saves.
package revision

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/google/uuid"
)

// Revision is a snapshot of a content record taken after a successful save.
type Revision struct {
	ID         string         `json:"id" bson:"_id"`
	ContentID  int64          `json:"contentId" bson:"contentId"`
	Type       string         `json:"type" bson:"type"`
	Status     content.Status `json:"status" bson:"status"`
	Title      string         `json:"title" bson:"title"`
	Identifier string         `json:"identifier" bson:"identifier"`
	Elements   string         `json:"elements,omitempty" bson:"elements,omitempty"`
	Settings   string         `json:"settings,omitempty" bson:"settings,omitempty"`
	EditorID   string         `json:"editorId,omitempty" bson:"editorId,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" bson:"createdAt"`
}

// FromContent snapshots c.
func FromContent(c *content.Content) *Revision {
	return &Revision{
		ID:         uuid.NewString(),
		ContentID:  c.ID,
		Type:       c.Type,
		Status:     c.Status,
		Title:      c.Title,
		Identifier: c.Identifier,
		Elements:   c.Elements,
		Settings:   c.Settings,
		EditorID:   c.LastEditorID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store persists revisions. ListByContent returns newest first; limit <= 0
// means no limit.
type Store interface {
	Append(ctx context.Context, r *Revision) error
	ListByContent(ctx context.Context, contentID int64, limit int) ([]*Revision, error)
}

// MemoryStore is an in-memory Store used for tests and the memory driver.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[int64][]*Revision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64][]*Revision)}
}

func (m *MemoryStore) Append(_ context.Context, r *Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.byID[r.ContentID] = append(m.byID[r.ContentID], &cp)
	return nil
}

func (m *MemoryStore) ListByContent(_ context.Context, contentID int64, limit int) ([]*Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.byID[contentID]
	out := make([]*Revision, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		cp := *src[i]
		out = append(out, &cp)
	}
	return truncate(out, limit), nil
}

func truncate(rs []*Revision, limit int) []*Revision {
	if limit > 0 && len(rs) > limit {
		return rs[:limit]
	}
	return rs
}

func newestFirst(rs []*Revision) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}

// Tee appends to the primary store and then to every archive. Archive
// failures are returned but the primary write is kept.
type Tee struct {
	Primary  Store
	Archives []Store
}

func (t Tee) Append(ctx context.Context, r *Revision) error {
	if err := t.Primary.Append(ctx, r); err != nil {
		return err
	}
	for _, a := range t.Archives {
		if err := a.Append(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) ListByContent(ctx context.Context, contentID int64, limit int) ([]*Revision, error) {
	return t.Primary.ListByContent(ctx, contentID, limit)
}
