package document

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/content/repository"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/stretchr/testify/require"
)

type names map[string]string

func (n names) DisplayName(_ context.Context, sub string) string {
	if v, ok := n[sub]; ok {
		return v
	}
	return sub
}

// recordingStore counts writes.
type recordingStore struct {
	*repository.MemoryStore
	writes int
}

func (s *recordingStore) Save(ctx context.Context, c *content.Content) error {
	s.writes++
	return s.MemoryStore.Save(ctx, c)
}

func setup(t *testing.T, az authz.Authorizer) (*Registry, *repository.Repository, *recordingStore) {
	t.Helper()
	reg := NewRegistry(&Env{Editors: names{"u1": "Ada"}, PreviewBaseURL: "https://shop.test/"})
	st := &recordingStore{MemoryStore: repository.NewMemoryStore()}
	repo := repository.New(st, reg, az, scope.Fixed(1))
	reg.UseRepository(repo)
	return reg, repo, st
}

func TestRegistry_Defaults(t *testing.T) {
	reg, _, _ := setup(t, authz.AllowAll())
	require.Equal(t, []string{"page", "template", "section"}, reg.Types())
	require.Equal(t, []string{"page", "section"}, reg.TemplateTypes())
	require.True(t, reg.HasType(context.Background(), "section"))
	require.False(t, reg.HasType(context.Background(), "widget"))

	props := reg.TypesWithProperties()
	require.Len(t, props, 3)
	require.Equal(t, true, props["page"][PropRegisterType])
	require.Equal(t, false, props["template"][PropRegisterType])

	// returned bags are copies
	props["page"][PropRegisterType] = false
	require.Equal(t, true, reg.TypesWithProperties()["page"][PropRegisterType])
}

func TestRegistry_PluginTypesAndIdempotence(t *testing.T) {
	reg, _, _ := setup(t, authz.AllowAll())
	reg.OnRegister().Add(func(r *Registry) {
		r.RegisterType("popup", Kind{Properties: Properties{PropRegisterType: true}})
		r.RegisterType("popup", Kind{Properties: Properties{PropRegisterType: true}})
	}, 20)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Types()
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), reg.OnRegister().Fired())
	require.Equal(t, []string{"page", "template", "section", "popup"}, reg.Types())
	require.Equal(t, []string{"page", "section", "popup"}, reg.TemplateTypes())
}

func TestRegistry_HandlerQueriesDuringRegistration(t *testing.T) {
	reg, _, _ := setup(t, authz.AllowAll())
	var sawPage bool
	var seen []string
	reg.OnRegister().Add(func(r *Registry) {
		sawPage = r.HasType(context.Background(), content.TypePage)
		seen = r.Types()
		r.RegisterType("widget", Kind{Properties: Properties{PropRegisterType: true}})
	}, 20)

	done := make(chan struct{})
	go func() {
		defer close(done)
		reg.Types()
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("registration handler calling back into the registry hung")
	}

	require.True(t, sawPage)
	require.Equal(t, []string{"page", "template", "section"}, seen)
	require.True(t, reg.HasType(context.Background(), "widget"))
	require.Equal(t, []string{"page", "section", "widget"}, reg.TemplateTypes())
}

func TestRegistry_CreateUnknownType(t *testing.T) {
	reg, _, st := setup(t, authz.AllowAll())
	d, err := reg.Create(context.Background(), "unknown-type", Fields{})
	require.Nil(t, d)
	require.ErrorIs(t, err, ErrUnknownType)
	require.ErrorIs(t, err, content.ErrNotFound)
	require.Contains(t, err.Error(), "type unknown-type does not exist")
	require.Zero(t, st.writes)
}

func TestRegistry_CreatePage(t *testing.T) {
	reg, repo, st := setup(t, authz.AllowAll())
	ctx := authz.WithClaims(context.Background(), map[string]interface{}{"sub": "u1"})
	d, err := reg.Create(ctx, "page", Fields{})
	require.NoError(t, err)
	require.Equal(t, 1, st.writes)

	c := d.Content()
	require.NotZero(t, d.ID())
	require.Equal(t, content.StatusPending, c.Status)
	require.Regexp(t, regexp.MustCompile(`^page_[0-9a-f]{32}$`), c.Identifier)
	require.Equal(t, "u1", c.AuthorID)
	require.Equal(t, "u1", c.LastEditorID)
	require.Equal(t, []int{0, 1}, c.StoreIDs)

	stored, err := repo.GetByID(ctx, d.ID())
	require.NoError(t, err)
	require.Equal(t, c.Identifier, stored.Identifier)

	same, err := reg.Resolve(c, false)
	require.NoError(t, err)
	require.Same(t, d, same)
}

func TestRegistry_CreateKeepsGivenFields(t *testing.T) {
	reg, _, _ := setup(t, authz.AllowAll())
	d, err := reg.Create(context.Background(), "section", Fields{Title: "Hero", Identifier: "hero", Status: content.StatusRevision})
	require.NoError(t, err)
	require.Equal(t, "hero", d.Content().Identifier)
	require.Equal(t, content.StatusRevision, d.Content().Status)
	require.Equal(t, "Hero", d.Content().Title)
}

func TestRegistry_CreatePublishDenied(t *testing.T) {
	reg, _, st := setup(t, authz.StaticAuthorizer{})
	_, err := reg.Create(context.Background(), "page", Fields{Status: content.StatusPublished})
	require.ErrorIs(t, err, content.ErrForbidden)
	require.Zero(t, st.writes)
}

func TestRegistry_Resolve(t *testing.T) {
	reg, repo, _ := setup(t, authz.AllowAll())
	ctx := context.Background()

	_, err := reg.Resolve(&content.Content{ID: 1, Type: "widget"}, false)
	require.True(t, IsUnknownType(err))

	d, err := reg.Create(ctx, "page", Fields{})
	require.NoError(t, err)

	loaded, err := repo.GetByID(ctx, d.ID())
	require.NoError(t, err)
	other, err := reg.Resolve(loaded, false)
	require.NoError(t, err)
	require.NotSame(t, d, other, "a different instance of the record gets its own document")
	require.Same(t, loaded, other.Content())

	again, err := reg.Resolve(loaded, false)
	require.NoError(t, err)
	require.Same(t, other, again)

	fresh, err := reg.Resolve(loaded, true)
	require.NoError(t, err)
	require.NotSame(t, other, fresh)

	reg.Forget(loaded)
	afterForget, err := reg.Resolve(loaded, false)
	require.NoError(t, err)
	require.NotSame(t, fresh, afterForget)
}

func TestDocument_SaveMergesPartialData(t *testing.T) {
	reg, repo, _ := setup(t, authz.AllowAll())
	ctx := authz.WithClaims(context.Background(), map[string]interface{}{"sub": "u1"})
	d, err := reg.Create(ctx, "page", Fields{Elements: `[1]`, Settings: `{"a":1}`})
	require.NoError(t, err)

	el := `[2]`
	require.NoError(t, d.Save(ctx, Data{Elements: &el}))
	stored, err := repo.GetByID(ctx, d.ID())
	require.NoError(t, err)
	require.Equal(t, `[2]`, stored.Elements)
	require.Equal(t, `{"a":1}`, stored.Settings)

	require.Regexp(t, `^Draft saved on .+ by Ada$`, d.LastEdited(ctx))
}

func TestDocument_SaveFailureKeepsLastEdited(t *testing.T) {
	reg, _, _ := setup(t, authz.AllowAll())
	ctx := context.Background()
	d, err := reg.Create(ctx, "page", Fields{})
	require.NoError(t, err)
	before := d.LastEdited(ctx)

	d.Content().Status = "bogus"
	err = d.Save(ctx, Data{})
	require.ErrorIs(t, err, content.ErrValidation)
	require.Equal(t, before, d.LastEdited(ctx))
}

func TestDocument_LastEditedFromRecord(t *testing.T) {
	env := &Env{Editors: names{"u2": "Grace"}}
	c := &content.Content{ID: 4, Type: "page", Status: content.StatusPublished, LastEditorID: "u2",
		UpdatedAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)}
	d := NewBase(env, PageKind().Properties, c)
	require.Equal(t, "Last edited on May 4, 2026 09:30 by Grace", d.LastEdited(context.Background()))

	empty := NewBase(env, PageKind().Properties, &content.Content{Type: "page"})
	require.Equal(t, "", empty.LastEdited(context.Background()))
}

func TestDocument_PreviewURL(t *testing.T) {
	env := &Env{PreviewBaseURL: "https://shop.test/"}
	c := &content.Content{ID: 9, Type: "page", Identifier: "page_abc"}
	require.Equal(t, "https://shop.test/pagebuilder/content/page_abc", NewBase(env, PageKind().Properties, c).PreviewURL())

	c.Type = "section"
	require.Equal(t, "https://shop.test/pagebuilder/preview/9", NewBase(env, SectionKind().Properties, c).PreviewURL())
	require.Equal(t, "/pagebuilder/preview/9", NewBase(&Env{}, Properties{}, c).PreviewURL())
}

func TestDocument_SaveWithoutRepository(t *testing.T) {
	d := NewBase(&Env{}, Properties{}, &content.Content{Type: "page"})
	err := d.Save(context.Background(), Data{})
	require.Error(t, err)
	require.False(t, errors.Is(err, content.ErrValidation))
}
