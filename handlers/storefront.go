package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/editor"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body class="pagebuilder-{{.Type}}">
<main class="pagebuilder-content" data-content-id="{{.ID}}" data-identifier="{{.Identifier}}" data-elements="{{.Elements}}" data-settings="{{.Settings}}"></main>
</body>
</html>
`))

// renderPage writes m as an HTML page with the header and footer
// extension points applied.
func (h *ContentHandler) renderPage(c *gin.Context, m *content.Content) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, m); err != nil {
		logger.Errorf("render content %d: %v", m.ID, err)
		c.String(http.StatusInternalServerError, "Something went wrong while rendering the content.")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.render.Modify(buf.String())))
}

// Storefront renders a published content visible in the current store.
func (h *ContentHandler) Storefront(c *gin.Context) {
	ctx := c.Request.Context()
	m, err := h.Repo.GetByIdentifier(ctx, c.Param("identifier"), h.Stores.CurrentStoreID(ctx))
	if err != nil || m.Status != content.StatusPublished {
		if err != nil && editor.StatusFor(err) != http.StatusNotFound {
			logger.Errorf("load content %q: %v", c.Param("identifier"), err)
		}
		c.String(http.StatusNotFound, "Page not found")
		return
	}
	h.renderPage(c, m)
}

// Preview renders any content regardless of status for editors.
func (h *ContentHandler) Preview(c *gin.Context) {
	m := h.load(c)
	if m == nil {
		return
	}
	if !h.allowed(c, m.Type, "view") {
		denied(c, "view")
		return
	}
	c.Header("X-Robots-Tag", "noindex, nofollow")
	h.renderPage(c, m)
}
