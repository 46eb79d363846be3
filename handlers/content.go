package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/content/repository"
	"github.com/gogotex/pagebuilder/internal/document"
	"github.com/gogotex/pagebuilder/internal/editor"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/internal/persistor"
	"github.com/gogotex/pagebuilder/internal/response"
	"github.com/gogotex/pagebuilder/internal/scope"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

// ContentDeps are the collaborators of ContentHandler. Header and Footer
// are the storefront extension points; nil means nothing is injected.
type ContentDeps struct {
	Repo      *repository.Repository
	Documents *document.Registry
	Actions   *editor.Ajax
	Authz     authz.Authorizer
	Persistor persistor.DataPersistor
	Stores    scope.Resolver
	Header    *hooks.Action[io.Writer]
	Footer    *hooks.Action[io.Writer]
}

// ContentHandler serves the editor, admin, API and storefront routes.
type ContentHandler struct {
	ContentDeps
	render response.Chain
}

func NewContentHandler(d ContentDeps) *ContentHandler {
	if d.Header == nil {
		d.Header = hooks.NewAction[io.Writer]("header")
	}
	if d.Footer == nil {
		d.Footer = hooks.NewAction[io.Writer]("footer")
	}
	return &ContentHandler{
		ContentDeps: d,
		render:      response.Chain{response.NewHeader(d.Header), response.NewFooter(d.Footer)},
	}
}

// Register mounts the public storefront route on r and every other route
// behind auth.
func (h *ContentHandler) Register(r *gin.Engine, auth ...gin.HandlerFunc) {
	r.GET("/pagebuilder/content/:identifier", h.Storefront)

	private := r.Group("/", auth...)
	private.POST("/pagebuilder/ajax", h.Ajax)
	private.GET("/pagebuilder/preview/:id", h.Preview)

	admin := private.Group("/admin/pagebuilder/content")
	admin.GET("/grid", h.Grid)
	admin.GET("/edit", h.Edit)
	admin.POST("/save", h.Save)

	api := private.Group("/api")
	api.GET("/types", h.Types)
	api.GET("/contents", h.List)
	api.POST("/contents", h.Create)
	api.GET("/contents/:id", h.Get)
	api.DELETE("/contents/:id", h.Delete)
	api.GET("/contents/:id/revisions", h.Revisions)
}

func (h *ContentHandler) allowed(c *gin.Context, contentType, action string) bool {
	return h.Authz.IsAllowed(c.Request.Context(), content.RoleName(contentType, action))
}

// load reads the :id path parameter and the content it names, writing the
// error response itself when it returns nil.
func (h *ContentHandler) load(c *gin.Context) *content.Content {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return nil
	}
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil
	}
	return m
}

// fail writes err with the status of its category.
func fail(c *gin.Context, err error) {
	code := editor.StatusFor(err)
	msg := content.Message(err)
	if code == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "Something went wrong while processing the request."
	}
	c.JSON(code, gin.H{"error": msg})
}

func denied(c *gin.Context, what string) {
	c.JSON(http.StatusForbidden, gin.H{"error": "Sorry, you need permissions to " + what + " this content."})
}
