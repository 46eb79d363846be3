package repository

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gogotex/pagebuilder/internal/content"
)

// MemoryStore is a simple in-memory Store used for the memory driver and
// unit tests.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[int64]*content.Content
	nextID int64
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[int64]*content.Content), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id int64) (*content.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.store[id]; ok {
		return c.Clone(), nil
	}
	return nil, content.NotFoundf("content %d", id)
}

func (m *MemoryStore) Save(_ context.Context, c *content.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.store {
		if id != c.ID && other.Identifier == c.Identifier {
			return content.Invalidf("duplicate identifier %q", c.Identifier)
		}
	}
	now := m.now().UTC()
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
		c.CreatedAt = now
	} else if prev, ok := m.store[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		return content.NotFoundf("content %d", c.ID)
	}
	c.UpdatedAt = now
	m.store[c.ID] = c.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, c *content.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[c.ID]; !ok {
		return content.NotFoundf("content %d", c.ID)
	}
	delete(m.store, c.ID)
	return nil
}

func (m *MemoryStore) List(_ context.Context, sc content.SearchCriteria) ([]*content.Content, int, error) {
	m.mu.RLock()
	matched := make([]*content.Content, 0, len(m.store))
	for _, c := range m.store {
		ok, err := matchAll(c, sc.Filters)
		if err != nil {
			m.mu.RUnlock()
			return nil, 0, err
		}
		if ok {
			matched = append(matched, c.Clone())
		}
	}
	m.mu.RUnlock()

	sortContents(matched, sc.SortOrders)
	total := len(matched)
	if sc.PageSize > 0 {
		start := max(0, min(sc.Offset(), total))
		end := min(start+sc.PageSize, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func matchAll(c *content.Content, filters []content.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := match(c, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(c *content.Content, f content.Filter) (bool, error) {
	if f.Field == "store_id" {
		return matchStores(c.StoreIDs, f)
	}
	got := fieldString(c, f.Field)
	switch f.Condition {
	case content.CondEq:
		return got == fmt.Sprint(f.Value), nil
	case content.CondNeq:
		return got != fmt.Sprint(f.Value), nil
	case content.CondLike:
		re, err := likePattern(fmt.Sprint(f.Value))
		if err != nil {
			return false, err
		}
		return re.MatchString(got), nil
	case content.CondIn:
		return slices.Contains(stringValues(f.Value), got), nil
	case content.CondGteq:
		return compare(c, f) >= 0, nil
	case content.CondLteq:
		return compare(c, f) <= 0, nil
	}
	return false, content.Invalidf("unknown filter condition %q", f.Condition)
}

func matchStores(stores []int, f content.Filter) (bool, error) {
	has := func(v string) bool {
		for _, s := range stores {
			if fmt.Sprint(s) == v {
				return true
			}
		}
		return false
	}
	switch f.Condition {
	case content.CondEq:
		return has(fmt.Sprint(f.Value)), nil
	case content.CondNeq:
		return !has(fmt.Sprint(f.Value)), nil
	case content.CondIn:
		for _, v := range stringValues(f.Value) {
			if has(v) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, content.Invalidf("condition %q not supported for store_id", f.Condition)
}

// compare orders c's field against the filter value: numerically for id,
// chronologically for timestamps, lexically otherwise.
func compare(c *content.Content, f content.Filter) int {
	switch f.Field {
	case "id":
		var v int64
		_, _ = fmt.Sscan(fmt.Sprint(f.Value), &v)
		return cmpInt64(c.ID, v)
	case "created_at", "updated_at":
		t := c.CreatedAt
		if f.Field == "updated_at" {
			t = c.UpdatedAt
		}
		var v time.Time
		switch tv := f.Value.(type) {
		case time.Time:
			v = tv
		default:
			v, _ = time.Parse(time.RFC3339, fmt.Sprint(f.Value))
		}
		return t.Compare(v)
	}
	return strings.Compare(fieldString(c, f.Field), fmt.Sprint(f.Value))
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func fieldString(c *content.Content, field string) string {
	switch field {
	case "id":
		return fmt.Sprint(c.ID)
	case "type":
		return c.Type
	case "status":
		return string(c.Status)
	case "title":
		return c.Title
	case "identifier":
		return c.Identifier
	case "author_id":
		return c.AuthorID
	case "last_editor_id":
		return c.LastEditorID
	case "created_at":
		return c.CreatedAt.Format(time.RFC3339Nano)
	case "updated_at":
		return c.UpdatedAt.Format(time.RFC3339Nano)
	}
	return ""
}

func stringValues(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, x := range t {
			out[i] = fmt.Sprint(x)
		}
		return out
	case []int:
		out := make([]string, len(t))
		for i, x := range t {
			out[i] = fmt.Sprint(x)
		}
		return out
	case string:
		return strings.Split(t, ",")
	}
	return []string{fmt.Sprint(v)}
}

// likePattern converts a SQL LIKE pattern into a case-insensitive regexp.
func likePattern(p string) (*regexp.Regexp, error) {
	return regexp.Compile("(?is)" + likeRegex(p))
}

func sortContents(items []*content.Content, orders []content.SortOrder) {
	if len(orders) == 0 {
		orders = []content.SortOrder{{Field: "id"}}
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range orders {
			var d int
			switch o.Field {
			case "id":
				d = cmpInt64(items[i].ID, items[j].ID)
			case "created_at":
				d = items[i].CreatedAt.Compare(items[j].CreatedAt)
			case "updated_at":
				d = items[i].UpdatedAt.Compare(items[j].UpdatedAt)
			default:
				d = strings.Compare(fieldString(items[i], o.Field), fieldString(items[j], o.Field))
			}
			if d == 0 {
				continue
			}
			if o.Desc {
				return d > 0
			}
			return d < 0
		}
		return false
	})
}
