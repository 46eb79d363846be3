package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/revision"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/gogotex/pagebuilder/pkg/logger"
	"github.com/gogotex/pagebuilder/pkg/metrics"
)

// TypeChecker reports whether a content type is registered.
type TypeChecker interface {
	HasType(ctx context.Context, contentType string) bool
}

// Repository validates and persists contents. Every mutation path goes
// through Save so the status, type and publish checks are shared.
type Repository struct {
	store     Store
	types     TypeChecker
	authz     authz.Authorizer
	scope     scope.Resolver
	revisions revision.Store
}

type Option func(*Repository)

// WithRevisions appends a revision after each successful save.
func WithRevisions(s revision.Store) Option {
	return func(r *Repository) { r.revisions = s }
}

func New(store Store, types TypeChecker, az authz.Authorizer, sc scope.Resolver, opts ...Option) *Repository {
	r := &Repository{store: store, types: types, authz: az, scope: sc}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Save validates c and writes it. On any failure nothing is written and the
// cause is wrapped in a *content.OpError.
func (r *Repository) Save(ctx context.Context, c *content.Content) (*content.Content, error) {
	if err := r.validate(ctx, c); err != nil {
		r.count(c, err)
		return nil, &content.OpError{Op: "save", Err: err}
	}
	if c.StoreIDs == nil {
		c.StoreIDs = defaultStores(r.scope.CurrentStoreID(ctx))
	}
	if err := r.store.Save(ctx, c); err != nil {
		r.count(c, err)
		return nil, &content.OpError{Op: "save", Err: err}
	}
	c.SetOrigData()
	r.count(c, nil)

	if r.revisions != nil {
		if err := r.revisions.Append(ctx, revision.FromContent(c)); err != nil {
			logger.Warnf("revision for content %d not recorded: %v", c.ID, err)
		}
	}
	return c, nil
}

func (r *Repository) validate(ctx context.Context, c *content.Content) error {
	if !c.Status.IsValid() {
		return content.Invalidf("invalid content status: %s", c.Status)
	}
	if !r.types.HasType(ctx, c.Type) {
		return content.Invalidf("invalid content type: %s", c.Type)
	}
	if c.Status == content.StatusPublished && c.OrigStatus() != content.StatusPublished {
		if !r.authz.IsAllowed(ctx, c.RoleName("publish")) {
			return fmt.Errorf("%w: you can't publish this content", content.ErrForbidden)
		}
	}
	return nil
}

func defaultStores(current int) []int {
	if current == content.GlobalStoreID {
		return []int{content.GlobalStoreID}
	}
	return []int{content.GlobalStoreID, current}
}

func (r *Repository) count(c *content.Content, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, content.ErrValidation):
		result = "invalid"
	case errors.Is(err, content.ErrForbidden):
		result = "forbidden"
	default:
		result = "error"
	}
	metrics.ContentSaves.WithLabelValues(c.Type, result).Inc()
}

// GetByID loads a content and snapshots its fields as the change baseline.
func (r *Repository) GetByID(ctx context.Context, id int64) (*content.Content, error) {
	c, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, content.NotFoundf("the content with the %q ID doesn't exist", fmt.Sprint(id))
		}
		return nil, err
	}
	c.SetOrigData()
	return c, nil
}

// GetByIdentifier returns the content with the given identifier visible in
// storeID (assigned to it or to the global scope).
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string, storeID int) (*content.Content, error) {
	stores := []any{content.GlobalStoreID}
	if storeID != content.GlobalStoreID {
		stores = append(stores, storeID)
	}
	items, _, err := r.store.List(ctx, content.SearchCriteria{
		Filters: []content.Filter{
			{Field: "identifier", Condition: content.CondEq, Value: identifier},
			{Field: "store_id", Condition: content.CondIn, Value: stores},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, content.NotFoundf("the content with the %q identifier doesn't exist", identifier)
	}
	items[0].SetOrigData()
	return items[0], nil
}

func (r *Repository) GetList(ctx context.Context, sc content.SearchCriteria) (*content.SearchResults, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	items, total, err := r.store.List(ctx, sc)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		c.SetOrigData()
	}
	return &content.SearchResults{Criteria: sc, Items: items, TotalCount: total}, nil
}

func (r *Repository) Delete(ctx context.Context, c *content.Content) error {
	if err := r.store.Delete(ctx, c); err != nil {
		metrics.ContentDeletes.WithLabelValues("error").Inc()
		return &content.OpError{Op: "delete", Err: err}
	}
	metrics.ContentDeletes.WithLabelValues("ok").Inc()
	return nil
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.Delete(ctx, c)
}

// Revisions lists the recorded revisions of a content, newest first.
func (r *Repository) Revisions(ctx context.Context, id int64, limit int) ([]*revision.Revision, error) {
	if r.revisions == nil {
		return []*revision.Revision{}, nil
	}
	return r.revisions.ListByContent(ctx, id, limit)
}
