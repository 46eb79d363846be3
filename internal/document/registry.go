package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

// ErrUnknownType is returned for types nobody registered.
var ErrUnknownType = fmt.Errorf("%w: unknown document type", content.ErrNotFound)

// Fields seed a new content in Create. Zero values get defaults.
type Fields struct {
	Title      string
	Identifier string
	Status     content.Status
	StoreIDs   []int
	Elements   string
	Settings   string
}

// Registry maps content types to document kinds. Types are registered
// lazily, exactly once, by broadcasting the "documents/register" action on
// first use. Handlers of that action may query the registry; they see the
// types registered before them.
type Registry struct {
	env *Env

	register *hooks.Action[*Registry]
	once     sync.Once

	mu            sync.RWMutex
	kinds         map[string]Kind
	order         []string
	templateTypes []string
	docs          map[string]Document
}

func NewRegistry(env *Env) *Registry {
	r := &Registry{
		env:      env,
		register: hooks.NewAction[*Registry]("documents/register"),
		kinds:    make(map[string]Kind),
		docs:     make(map[string]Document),
	}
	r.register.Add(func(reg *Registry) { reg.registerDefaults() }, 0)
	return r
}

// OnRegister exposes the registration action so other packages can
// contribute types.
func (r *Registry) OnRegister() *hooks.Action[*Registry] { return r.register }

// UseRepository sets the saver documents persist through.
func (r *Registry) UseRepository(s Saver) { r.env.Saver = s }

func (r *Registry) registerDefaults() {
	defaults := DefaultKinds()
	for _, t := range []string{content.TypePage, content.TypeTemplate, content.TypeSection} {
		r.RegisterType(t, defaults[t])
	}
}

// ensureInitialized fires documents/register once. Calls made while the
// action is running, including from its own handlers, see the types
// registered so far instead of waiting on the guard.
func (r *Registry) ensureInitialized() {
	if r.register.Did() {
		return
	}
	r.once.Do(func() {
		if !r.register.Did() {
			r.register.Do(r)
		}
	})
}

// RegisterType adds or replaces a kind. Kinds flagged register_type are
// also listed in TemplateTypes.
func (r *Registry) RegisterType(name string, k Kind) {
	if k.New == nil {
		k.New = newBase
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[name]; !ok {
		r.order = append(r.order, name)
	}
	r.kinds[name] = k
	if k.Properties.Bool(PropRegisterType) && !contains(r.templateTypes, name) {
		r.templateTypes = append(r.templateTypes, name)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *Registry) kind(name string) (Kind, bool) {
	r.ensureInitialized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// HasType reports whether contentType is registered.
func (r *Registry) HasType(_ context.Context, contentType string) bool {
	_, ok := r.kind(contentType)
	return ok
}

// Types lists registered type names in registration order.
func (r *Registry) Types() []string {
	r.ensureInitialized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// TemplateTypes lists the types usable as library templates.
func (r *Registry) TemplateTypes() []string {
	r.ensureInitialized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.templateTypes...)
}

// TypesWithProperties returns each registered type's property bag.
func (r *Registry) TypesWithProperties() map[string]Properties {
	r.ensureInitialized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Properties, len(r.kinds))
	for name, k := range r.kinds {
		props := make(Properties, len(k.Properties))
		for key, v := range k.Properties {
			props[key] = v
		}
		out[name] = props
	}
	return out
}

// Resolve returns the document bound to c, cached by c's unique identity.
// A cached document bound to another instance of the same record is
// replaced; fresh forces a new instance.
func (r *Registry) Resolve(c *content.Content, fresh bool) (Document, error) {
	k, ok := r.kind(c.Type)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, c.Type)
	}
	if c.IsObjectNew() {
		return k.New(r.env, k.Properties, c), nil
	}

	key := c.UniqueIdentity()
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[key]; ok && !fresh && d.Content() == c {
		return d, nil
	}
	d := k.New(r.env, k.Properties, c)
	r.docs[key] = d
	return d, nil
}

// Forget drops cached documents of c, e.g. after deletion.
func (r *Registry) Forget(c *content.Content) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, c.UniqueIdentity())
}

// Create persists a new content of the given type and returns its document.
// An unknown type fails before anything is written.
func (r *Registry) Create(ctx context.Context, contentType string, f Fields) (Document, error) {
	k, ok := r.kind(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: type %s does not exist", ErrUnknownType, contentType)
	}
	c := &content.Content{
		Type:       contentType,
		Status:     f.Status,
		Title:      f.Title,
		Identifier: f.Identifier,
		StoreIDs:   f.StoreIDs,
		Elements:   f.Elements,
		Settings:   f.Settings,
	}
	if c.Status == "" {
		c.Status = content.StatusPending
	}
	if c.Identifier == "" {
		c.Identifier = content.NewIdentifier(contentType, content.UniqueToken())
	}
	if c.Title == "" {
		c.Title = contentType
	}

	d := k.New(r.env, k.Properties, c)
	if err := d.Save(ctx, Data{}); err != nil {
		return nil, err
	}
	logger.Debugf("created %s content %d (%s)", contentType, c.ID, c.Identifier)

	r.mu.Lock()
	r.docs[c.UniqueIdentity()] = d
	r.mu.Unlock()
	return d, nil
}

// IsUnknownType reports whether err came from an unregistered type.
func IsUnknownType(err error) bool { return errors.Is(err, ErrUnknownType) }
