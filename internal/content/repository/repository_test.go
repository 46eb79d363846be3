package repository

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/revision"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

type typeSet map[string]bool

func (t typeSet) HasType(_ context.Context, name string) bool { return t[name] }

var defaultTypes = typeSet{content.TypePage: true, content.TypeSection: true, content.TypeTemplate: true}

// countingStore records writes made through it.
type countingStore struct {
	*MemoryStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, ct *content.Content) error {
	c.saves++
	return c.MemoryStore.Save(ctx, ct)
}

type failingRevisions struct{}

func (failingRevisions) Append(context.Context, *revision.Revision) error { return errors.New("down") }
func (failingRevisions) ListByContent(context.Context, int64, int) ([]*revision.Revision, error) {
	return nil, nil
}

func newRepo(az authz.Authorizer, opts ...Option) (*Repository, *countingStore) {
	st := &countingStore{MemoryStore: NewMemoryStore()}
	return New(st, defaultTypes, az, scope.Fixed(3), opts...), st
}

func page(status content.Status) *content.Content {
	return &content.Content{Type: content.TypePage, Status: status, Title: "Home", Identifier: content.NewIdentifier(content.TypePage, content.UniqueToken()), Elements: `[{"type":"row"}]`}
}

func TestSave_InvalidStatus(t *testing.T) {
	for _, s := range []content.Status{"", "draft", "PUBLISHED"} {
		r, st := newRepo(authz.AllowAll())
		_, err := r.Save(context.Background(), page(s))
		require.ErrorIs(t, err, content.ErrValidation)
		require.ErrorIs(t, err, content.ErrPersistence)
		require.Contains(t, err.Error(), "could not save the content")
		require.Zero(t, st.saves, "status %q must not reach the store", s)
	}
}

func TestSave_UnknownType(t *testing.T) {
	r, st := newRepo(authz.AllowAll())
	c := page(content.StatusPending)
	c.Type = "widget"
	_, err := r.Save(context.Background(), c)
	require.ErrorIs(t, err, content.ErrValidation)
	require.Equal(t, "validation failed: invalid content type: widget", content.Message(err))
	require.Zero(t, st.saves)
}

func TestSave_PublishRequiresPermission(t *testing.T) {
	ctx := context.Background()

	r, st := newRepo(authz.StaticAuthorizer{})
	_, err := r.Save(ctx, page(content.StatusPublished))
	require.ErrorIs(t, err, content.ErrForbidden)
	require.Zero(t, st.saves)

	r, _ = newRepo(authz.StaticAuthorizer{"pagebuilder::page_publish": true})
	saved, err := r.Save(ctx, page(content.StatusPublished))
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
}

func TestSave_AlreadyPublishedSkipsPublishCheck(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	admin := New(st, defaultTypes, authz.AllowAll(), scope.Fixed(0))
	c, err := admin.Save(ctx, page(content.StatusPublished))
	require.NoError(t, err)

	editor := New(st, defaultTypes, authz.StaticAuthorizer{}, scope.Fixed(0))
	loaded, err := editor.GetByID(ctx, c.ID)
	require.NoError(t, err)
	loaded.Title = "Home v2"
	_, err = editor.Save(ctx, loaded)
	require.NoError(t, err)

	// revision -> published is a transition and needs the grant
	loaded.Status = content.StatusRevision
	_, err = editor.Save(ctx, loaded)
	require.NoError(t, err)
	loaded.Status = content.StatusPublished
	_, err = editor.Save(ctx, loaded)
	require.ErrorIs(t, err, content.ErrForbidden)
}

func TestSave_DefaultStores(t *testing.T) {
	r, _ := newRepo(authz.AllowAll())
	c, err := r.Save(context.Background(), page(content.StatusPending))
	require.NoError(t, err)
	require.Equal(t, []int{0, 3}, c.StoreIDs)

	explicit := page(content.StatusPending)
	explicit.StoreIDs = []int{5}
	c, err = r.Save(context.Background(), explicit)
	require.NoError(t, err)
	require.Equal(t, []int{5}, c.StoreIDs)

	global := New(NewMemoryStore(), defaultTypes, authz.AllowAll(), scope.Fixed(0))
	c, err = global.Save(context.Background(), page(content.StatusPending))
	require.NoError(t, err)
	require.Equal(t, []int{0}, c.StoreIDs)
}

func TestSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(authz.AllowAll())
	in := page(content.StatusRevision)
	in.Settings = `{"layout":"full"}`
	saved, err := r.Save(ctx, in)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	want := saved.Clone()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(content.Content{})); diff != "" {
		t.Fatalf("reloaded content mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, content.StatusRevision, got.OrigStatus())
	require.False(t, got.HasChanged("elements"))
}

func TestSave_DuplicateIdentifier(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(authz.AllowAll())
	a := page(content.StatusPending)
	_, err := r.Save(ctx, a)
	require.NoError(t, err)
	b := page(content.StatusPending)
	b.Identifier = a.Identifier
	_, err = r.Save(ctx, b)
	require.ErrorIs(t, err, content.ErrValidation)
	require.Zero(t, b.ID)
}

func TestSave_Revisions(t *testing.T) {
	ctx := context.Background()
	revs := revision.NewMemoryStore()
	r, _ := newRepo(authz.AllowAll(), WithRevisions(revs))
	c, err := r.Save(ctx, page(content.StatusPending))
	require.NoError(t, err)
	c.Title = "Again"
	_, err = r.Save(ctx, c)
	require.NoError(t, err)

	list, err := r.Revisions(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Again", list[0].Title)

	// a failing revision store does not fail the save
	r, _ = newRepo(authz.AllowAll(), WithRevisions(failingRevisions{}))
	_, err = r.Save(ctx, page(content.StatusPending))
	require.NoError(t, err)
}

func TestGetByID_NotFound(t *testing.T) {
	r, _ := newRepo(authz.AllowAll())
	for _, id := range []int64{0, 1, 999} {
		c, err := r.GetByID(context.Background(), id)
		require.ErrorIs(t, err, content.ErrNotFound)
		require.Nil(t, c)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(authz.AllowAll())
	c, err := r.Save(ctx, page(content.StatusPending))
	require.NoError(t, err)

	require.NoError(t, r.DeleteByID(ctx, c.ID))
	_, err = r.GetByID(ctx, c.ID)
	require.ErrorIs(t, err, content.ErrNotFound)

	err = r.Delete(ctx, c)
	require.ErrorIs(t, err, content.ErrPersistence)
	require.Contains(t, err.Error(), "could not delete the content")

	require.ErrorIs(t, r.DeleteByID(ctx, c.ID), content.ErrNotFound)
}

func TestGetList(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(authz.AllowAll())
	for i, typ := range []string{content.TypePage, content.TypeSection, content.TypePage, content.TypePage} {
		c := page(content.StatusPending)
		c.Type = typ
		c.Title = []string{"b", "x", "a", "c"}[i]
		_, err := r.Save(ctx, c)
		require.NoError(t, err)
	}

	res, err := r.GetList(ctx, content.SearchCriteria{
		Filters:     []content.Filter{{Field: "type", Condition: content.CondEq, Value: content.TypePage}},
		SortOrders:  []content.SortOrder{{Field: "title"}},
		PageSize:    2,
		CurrentPage: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalCount)
	require.Len(t, res.Items, 2)
	require.Equal(t, "a", res.Items[0].Title)
	require.Equal(t, "b", res.Items[1].Title)

	_, err = r.GetList(ctx, content.SearchCriteria{Filters: []content.Filter{{Field: "password", Condition: content.CondEq}}})
	require.ErrorIs(t, err, content.ErrValidation)
}

func TestGetList_PageOutOfRange(t *testing.T) {
	ctx := context.Background()
	r, st := newRepo(authz.AllowAll())
	_, err := r.Save(ctx, page(content.StatusPending))
	require.NoError(t, err)

	_, err = r.GetList(ctx, content.SearchCriteria{PageSize: 2, CurrentPage: math.MaxInt})
	require.ErrorIs(t, err, content.ErrValidation)

	items, total, err := st.List(ctx, content.SearchCriteria{PageSize: 2, CurrentPage: math.MaxInt})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Empty(t, items)
}

func TestGetByIdentifier(t *testing.T) {
	ctx := context.Background()
	r, _ := newRepo(authz.AllowAll())
	c := page(content.StatusPublished)
	c.StoreIDs = []int{2}
	_, err := r.Save(ctx, c)
	require.NoError(t, err)

	got, err := r.GetByIdentifier(ctx, c.Identifier, 2)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)

	_, err = r.GetByIdentifier(ctx, c.Identifier, 4)
	require.ErrorIs(t, err, content.ErrNotFound)
}
