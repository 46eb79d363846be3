package document

import "github.com/gogotex/pagebuilder/internal/content"

// Kind is a registered document type: its static properties and the
// constructor binding it to a content.
type Kind struct {
	Properties Properties
	New        func(env *Env, props Properties, c *content.Content) Document
}

func newBase(env *Env, props Properties, c *content.Content) Document {
	return NewBase(env, props, c)
}

// PageKind is a storefront page, previewed at its public route.
func PageKind() Kind {
	return Kind{
		Properties: Properties{
			PropRegisterType:  true,
			PropShowInLibrary: true,
			PropIsEditable:    true,
			PropPreviewRoute:  "/pagebuilder/content/{identifier}",
		},
		New: newBase,
	}
}

// SectionKind is a reusable block embedded in pages.
func SectionKind() Kind {
	return Kind{
		Properties: Properties{
			PropRegisterType:  true,
			PropShowInLibrary: true,
			PropIsEditable:    true,
			PropPreviewRoute:  "/pagebuilder/preview/{id}",
		},
		New: newBase,
	}
}

func TemplateKind() Kind {
	return Kind{
		Properties: Properties{
			PropRegisterType:  false,
			PropShowInLibrary: false,
			PropIsEditable:    true,
			PropPreviewRoute:  "/pagebuilder/preview/{id}",
		},
		New: newBase,
	}
}

// DefaultKinds returns the built-in kinds by type name.
func DefaultKinds() map[string]Kind {
	return map[string]Kind{
		content.TypePage:     PageKind(),
		content.TypeTemplate: TemplateKind(),
		content.TypeSection:  SectionKind(),
	}
}
