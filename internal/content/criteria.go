package content

import "math"

// Condition is a filter comparison operator.
type Condition string

const (
	CondEq   Condition = "eq"
	CondNeq  Condition = "neq"
	CondLike Condition = "like"
	CondIn   Condition = "in"
	CondGteq Condition = "gteq"
	CondLteq Condition = "lteq"
)

func (c Condition) IsValid() bool {
	switch c {
	case CondEq, CondNeq, CondLike, CondIn, CondGteq, CondLteq:
		return true
	}
	return false
}

// Filter restricts a listing to records whose Field matches Value.
// For CondIn, Value is a []string or []any; CondLike uses SQL "%" wildcards.
type Filter struct {
	Field     string
	Condition Condition
	Value     any
}

// SortOrder orders a listing by Field.
type SortOrder struct {
	Field string
	Desc  bool
}

// SearchCriteria is the generic filter/sort/pagination input of GetList.
// PageSize 0 means no pagination; CurrentPage is 1-based.
type SearchCriteria struct {
	Filters     []Filter
	SortOrders  []SortOrder
	PageSize    int
	CurrentPage int
}

// SearchResults is a page of items plus the total count before pagination.
type SearchResults struct {
	Criteria   SearchCriteria
	Items      []*Content
	TotalCount int
}

// filterable lists the fields accepted in filters and sort orders.
var filterable = map[string]bool{
	"id":             true,
	"type":           true,
	"status":         true,
	"title":          true,
	"identifier":     true,
	"store_id":       true,
	"author_id":      true,
	"last_editor_id": true,
	"created_at":     true,
	"updated_at":     true,
}

// IsFilterable reports whether field can be used in criteria.
func IsFilterable(field string) bool { return filterable[field] }

// Validate checks fields and operators.
func (sc SearchCriteria) Validate() error {
	for _, f := range sc.Filters {
		if !IsFilterable(f.Field) {
			return Invalidf("unknown filter field %q", f.Field)
		}
		if !f.Condition.IsValid() {
			return Invalidf("unknown filter condition %q", f.Condition)
		}
	}
	for _, s := range sc.SortOrders {
		if !IsFilterable(s.Field) {
			return Invalidf("unknown sort field %q", s.Field)
		}
	}
	if sc.PageSize < 0 || sc.CurrentPage < 0 {
		return Invalidf("negative pagination")
	}
	if sc.PageSize > 0 && sc.CurrentPage > 1 && sc.CurrentPage-1 > math.MaxInt/sc.PageSize {
		return Invalidf("page %d out of range", sc.CurrentPage)
	}
	return nil
}

// Offset returns the number of rows to skip for the requested page.
func (sc SearchCriteria) Offset() int {
	if sc.PageSize <= 0 || sc.CurrentPage <= 1 {
		return 0
	}
	if sc.CurrentPage-1 > math.MaxInt/sc.PageSize {
		return math.MaxInt
	}
	return (sc.CurrentPage - 1) * sc.PageSize
}
