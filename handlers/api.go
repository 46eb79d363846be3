package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/document"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// criteriaFromQuery reads status, q (title substring), store, sort
// ("-updated_at" for descending), page and limit.
func criteriaFromQuery(c *gin.Context) (content.SearchCriteria, error) {
	sc := content.SearchCriteria{PageSize: defaultPageSize, CurrentPage: 1}
	if v := c.Query("status"); v != "" {
		sc.Filters = append(sc.Filters, content.Filter{Field: "status", Condition: content.CondEq, Value: v})
	}
	if v := c.Query("q"); v != "" {
		sc.Filters = append(sc.Filters, content.Filter{Field: "title", Condition: content.CondLike, Value: "%" + v + "%"})
	}
	if v := c.Query("store"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id < 0 {
			return sc, content.Invalidf("invalid store %q", v)
		}
		sc.Filters = append(sc.Filters, content.Filter{Field: "store_id", Condition: content.CondEq, Value: id})
	}
	for _, s := range strings.Split(c.Query("sort"), ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		field, desc := strings.CutPrefix(s, "-")
		sc.SortOrders = append(sc.SortOrders, content.SortOrder{Field: field, Desc: desc})
	}
	var err error
	if v := c.Query("page"); v != "" {
		if sc.CurrentPage, err = strconv.Atoi(v); err != nil {
			return sc, content.Invalidf("invalid page %q", v)
		}
	}
	if v := c.Query("limit"); v != "" {
		if sc.PageSize, err = strconv.Atoi(v); err != nil {
			return sc, content.Invalidf("invalid limit %q", v)
		}
		sc.PageSize = min(max(sc.PageSize, 1), maxPageSize)
	}
	return sc, nil
}

func listBody(res *content.SearchResults) gin.H {
	return gin.H{
		"items":       res.Items,
		"total_count": res.TotalCount,
		"page":        res.Criteria.CurrentPage,
		"limit":       res.Criteria.PageSize,
	}
}

// Types lists the registered document types with their properties.
func (h *ContentHandler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types":          h.Documents.TypesWithProperties(),
		"template_types": h.Documents.TemplateTypes(),
	})
}

// List searches contents across the types the caller may list.
func (h *ContentHandler) List(c *gin.Context) {
	var types []any
	wanted := h.Documents.Types()
	if t := c.Query("type"); t != "" {
		wanted = []string{t}
	}
	for _, t := range wanted {
		if h.allowed(c, t, "grid") {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		denied(c, "view")
		return
	}
	sc, err := criteriaFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	sc.Filters = append(sc.Filters, content.Filter{Field: "type", Condition: content.CondIn, Value: types})
	res, err := h.Repo.GetList(c.Request.Context(), sc)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listBody(res))
}

// CreateRequest is the body of POST /api/contents.
type CreateRequest struct {
	Type       string         `json:"type" binding:"required"`
	Title      string         `json:"title"`
	Identifier string         `json:"identifier"`
	Status     content.Status `json:"status"`
	StoreIDs   []int          `json:"store_ids"`
	Elements   string         `json:"elements"`
	Settings   string         `json:"settings"`
}

// Create makes a new content through its document type.
func (h *ContentHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.allowed(c, req.Type, "save") {
		denied(c, "save")
		return
	}
	d, err := h.Documents.Create(c.Request.Context(), req.Type, document.Fields{
		Title:      req.Title,
		Identifier: req.Identifier,
		Status:     req.Status,
		StoreIDs:   req.StoreIDs,
		Elements:   req.Elements,
		Settings:   req.Settings,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"content":     d.Content(),
		"preview_url": d.PreviewURL(),
	})
}

func (h *ContentHandler) Get(c *gin.Context) {
	m := h.load(c)
	if m == nil {
		return
	}
	if !h.allowed(c, m.Type, "view") {
		denied(c, "view")
		return
	}
	body := gin.H{"content": m}
	if d, err := h.Documents.Resolve(m, false); err == nil {
		body["last_edited"] = d.LastEdited(c.Request.Context())
		body["preview_url"] = d.PreviewURL()
	}
	c.JSON(http.StatusOK, body)
}

func (h *ContentHandler) Delete(c *gin.Context) {
	m := h.load(c)
	if m == nil {
		return
	}
	if !h.allowed(c, m.Type, "delete") {
		denied(c, "delete")
		return
	}
	if err := h.Repo.Delete(c.Request.Context(), m); err != nil {
		fail(c, err)
		return
	}
	h.Documents.Forget(m)
	c.Status(http.StatusNoContent)
}

// Revisions lists saved snapshots, newest first; limit defaults to 20.
func (h *ContentHandler) Revisions(c *gin.Context) {
	m := h.load(c)
	if m == nil {
		return
	}
	if !h.allowed(c, m.Type, "view") {
		denied(c, "view")
		return
	}
	limit := defaultPageSize
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(max(n, 1), maxPageSize)
	}
	revs, err := h.Repo.Revisions(c.Request.Context(), m.ID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": revs})
}
