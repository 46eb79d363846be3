// Package document binds behavior objects to content records and keeps the
// registry of content types.
package document

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
)

// Property names understood by the registry and the admin UI.
const (
	PropRegisterType  = "register_type"
	PropShowInLibrary = "show_in_library"
	PropIsEditable    = "is_editable"
	PropPreviewRoute  = "preview_route"
)

// Properties is a static capability descriptor of a document kind.
type Properties map[string]any

// Bool returns the named flag, false when absent.
func (p Properties) Bool(name string) bool {
	b, _ := p[name].(bool)
	return b
}

func (p Properties) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Data is a partial update from the editor. Nil fields are left unchanged.
type Data struct {
	Elements *string
	Settings *string
}

// Document is a behavior object bound to one content record.
type Document interface {
	ID() int64
	Type() string
	Content() *content.Content
	Save(ctx context.Context, data Data) error
	LastEdited(ctx context.Context) string
	PreviewURL() string
	Properties() Properties
	Property(name string) any
}

// Saver persists contents. Implemented by repository.Repository.
type Saver interface {
	Save(ctx context.Context, c *content.Content) (*content.Content, error)
}

// EditorDirectory resolves editor subjects to display names.
type EditorDirectory interface {
	DisplayName(ctx context.Context, sub string) string
}

// Env carries the collaborators shared by all documents of a registry.
type Env struct {
	Saver          Saver
	Editors        EditorDirectory
	PreviewBaseURL string
}

// Base implements Document for the built-in kinds. Custom kinds may embed it.
type Base struct {
	env   *Env
	kind  string
	props Properties
	model *content.Content

	mu     sync.Mutex
	editor string
	edited time.Time
}

func NewBase(env *Env, props Properties, c *content.Content) *Base {
	return &Base{env: env, kind: c.Type, props: props, model: c}
}

func (b *Base) ID() int64 { return b.model.ID }

func (b *Base) Type() string { return b.kind }

func (b *Base) Content() *content.Content { return b.model }

func (b *Base) Properties() Properties { return b.props }

func (b *Base) Property(name string) any { return b.props[name] }

// Save merges data into the bound content, stamps the editor from ctx and
// persists through the repository.
func (b *Base) Save(ctx context.Context, data Data) error {
	c := b.model
	if data.Elements != nil {
		c.Elements = *data.Elements
	}
	if data.Settings != nil {
		c.Settings = *data.Settings
	}
	if sub := authz.Subject(ctx); sub != "" {
		if c.IsObjectNew() && c.AuthorID == "" {
			c.AuthorID = sub
		}
		c.LastEditorID = sub
	}
	if b.env.Saver == nil {
		return fmt.Errorf("document %s: no repository configured", c.Identifier)
	}
	if _, err := b.env.Saver.Save(ctx, c); err != nil {
		return err
	}

	b.mu.Lock()
	b.editor = b.displayName(ctx, c.LastEditorID)
	b.edited = c.UpdatedAt
	b.mu.Unlock()
	return nil
}

func (b *Base) displayName(ctx context.Context, sub string) string {
	if b.env.Editors == nil || sub == "" {
		return sub
	}
	return b.env.Editors.DisplayName(ctx, sub)
}

// LastEdited describes the latest save, e.g.
// "Draft saved on Jan 2, 2026 15:04 by Ada".
func (b *Base) LastEdited(ctx context.Context) string {
	b.mu.Lock()
	editor, at := b.editor, b.edited
	b.mu.Unlock()
	if at.IsZero() {
		at = b.model.UpdatedAt
		editor = b.displayName(ctx, b.model.LastEditorID)
	}
	if at.IsZero() {
		return ""
	}

	label := "Last edited on %s"
	if b.model.Status != content.StatusPublished {
		label = "Draft saved on %s"
	}
	out := fmt.Sprintf(label, at.Format("Jan 2, 2006 15:04"))
	if editor != "" {
		out += " by " + editor
	}
	return out
}

// PreviewURL expands the kind's preview_route with {id}, {identifier} and
// {type} and prefixes the configured base URL.
func (b *Base) PreviewURL() string {
	route := b.props.String(PropPreviewRoute)
	if route == "" {
		route = "/pagebuilder/preview/{id}"
	}
	r := strings.NewReplacer(
		"{id}", strconv.FormatInt(b.model.ID, 10),
		"{identifier}", b.model.Identifier,
		"{type}", b.kind,
	)
	return strings.TrimRight(b.env.PreviewBaseURL, "/") + r.Replace(route)
}
