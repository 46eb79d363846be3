package content

import (
	"errors"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsValid(t *testing.T) {
	for _, s := range Statuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Status("draft").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestContent_OrigDataAndChanges(t *testing.T) {
	c := &Content{ID: 3, Type: TypePage, Status: StatusRevision, Title: "Home", StoreIDs: []int{0, 1}}
	require.Equal(t, Status(""), c.OrigStatus())
	require.True(t, c.HasChanged("title"))

	c.SetOrigData()
	require.Equal(t, StatusRevision, c.OrigStatus())
	require.False(t, c.HasChanged("title"))
	require.False(t, c.HasChanged("store_id"))

	c.Status = StatusPublished
	c.StoreIDs[1] = 2
	require.True(t, c.HasChanged("status"))
	require.True(t, c.HasChanged("store_id"))
	require.Equal(t, StatusRevision, c.OrigStatus())
}

func TestContent_IdentityAndRoles(t *testing.T) {
	c := &Content{ID: 12, Type: TypeSection, StoreIDs: []int{0, 3}}
	assert.Equal(t, "12_0-3", c.UniqueIdentity())
	assert.Equal(t, "pagebuilder::section_publish", c.RoleName("publish"))
	assert.False(t, c.IsObjectNew())
	assert.True(t, (&Content{}).IsObjectNew())
}

func TestIdentifiers(t *testing.T) {
	tok := UniqueToken()
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), tok)
	require.NotEqual(t, tok, UniqueToken())

	assert.Equal(t, "page_abc", NewIdentifier("page", "abc"))
	assert.Equal(t, "page_home_xyz", DuplicateIdentifier("page_home_abc", "xyz"))
	assert.Equal(t, "xyz", DuplicateIdentifier("home", "xyz"))
}

func TestOpError(t *testing.T) {
	err := &OpError{Op: "save", Err: Invalidf("invalid content status: %s", "draft")}
	require.True(t, errors.Is(err, ErrPersistence))
	require.True(t, errors.Is(err, ErrValidation))
	require.False(t, errors.Is(err, ErrForbidden))
	require.Contains(t, err.Error(), "could not save the content")
	require.Equal(t, "validation failed: invalid content status: draft", Message(err))

	del := &OpError{Op: "delete", Err: errors.New("boom")}
	require.Equal(t, "could not delete the content: boom", del.Error())
}

func TestSearchCriteria(t *testing.T) {
	sc := SearchCriteria{
		Filters:     []Filter{{Field: "type", Condition: CondEq, Value: "page"}},
		SortOrders:  []SortOrder{{Field: "updated_at", Desc: true}},
		PageSize:    10,
		CurrentPage: 3,
	}
	require.NoError(t, sc.Validate())
	require.Equal(t, 20, sc.Offset())

	bad := SearchCriteria{Filters: []Filter{{Field: "password", Condition: CondEq}}}
	require.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = SearchCriteria{Filters: []Filter{{Field: "type", Condition: "regex"}}}
	require.ErrorIs(t, bad.Validate(), ErrValidation)

	require.Equal(t, 0, SearchCriteria{PageSize: 5}.Offset())

	huge := SearchCriteria{PageSize: 2, CurrentPage: math.MaxInt}
	require.ErrorIs(t, huge.Validate(), ErrValidation)
	require.Equal(t, math.MaxInt, huge.Offset())
	require.NoError(t, SearchCriteria{PageSize: 1, CurrentPage: math.MaxInt}.Validate())
}
