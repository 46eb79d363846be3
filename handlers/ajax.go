package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/editor"
)

// AjaxRequest is the editor's batch of actions against one content.
type AjaxRequest struct {
	ContentID json.Number                    `json:"content_id"`
	Actions   map[string]editor.ActionRequest `json:"actions"`
}

// Ajax runs the posted actions. content_id may come from the body or the
// query string.
func (h *ContentHandler) Ajax(c *gin.Context) {
	var req AjaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	raw := req.ContentID.String()
	if raw == "" {
		raw = c.Query("content_id")
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	if id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page content not found"})
		return
	}
	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if editor.StatusFor(err) == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Page content not found"})
			return
		}
		fail(c, err)
		return
	}
	if len(req.Actions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no actions given"})
		return
	}

	results := h.Actions.Handle(c.Request.Context(), req.Actions, m)
	c.JSON(http.StatusOK, gin.H{"success": true, "responses": results})
}
