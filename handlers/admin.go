package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/persistor"
	"github.com/gogotex/pagebuilder/pkg/logger"
)

const adminBase = "/admin/pagebuilder/content"

// Message is a flash message returned with admin redirects.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func success(text string) Message { return Message{Type: "success", Text: text} }
func failure(text string) Message { return Message{Type: "error", Text: text} }

func editURL(id, contentType string) string {
	q := url.Values{"type": {contentType}}
	if id != "" && id != "0" {
		q.Set("content_id", id)
	}
	return adminBase + "/edit?" + q.Encode()
}

func gridURL(contentType string) string {
	return adminBase + "/grid?" + url.Values{"type": {contentType}}.Encode()
}

// redirect answers 303 with Location and the flash messages as JSON.
func redirect(c *gin.Context, location string, msgs ...Message) {
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, gin.H{"redirect": location, "messages": msgs})
}

func referer(c *gin.Context, contentType string) string {
	if r := c.GetHeader("Referer"); r != "" {
		return r
	}
	return gridURL(contentType)
}

// Grid lists contents of one type for the admin grid and drops any form
// data persisted by a failed save.
func (h *ContentHandler) Grid(c *gin.Context) {
	ctx := c.Request.Context()
	contentType := c.Query("type")
	if !h.Documents.HasType(ctx, contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid content type: %s", contentType)})
		return
	}
	if !h.allowed(c, contentType, "grid") {
		denied(c, "view")
		return
	}
	if err := h.Persistor.Clear(ctx, authz.Subject(ctx), persistor.ContentFormKey); err != nil {
		logger.Warnf("clear persisted form data: %v", err)
	}

	sc, err := criteriaFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	sc.Filters = append(sc.Filters, content.Filter{Field: "type", Condition: content.CondEq, Value: contentType})
	res, err := h.Repo.GetList(ctx, sc)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listBody(res))
}

// Edit returns the content to edit (none for a new one) together with form
// data persisted by the last failed save.
func (h *ContentHandler) Edit(c *gin.Context) {
	ctx := c.Request.Context()
	contentType := c.Query("type")
	if !h.allowed(c, contentType, "save") {
		denied(c, "save")
		return
	}
	body := gin.H{"type": contentType}
	if id, _ := strconv.ParseInt(c.Query("content_id"), 10, 64); id > 0 {
		m, err := h.Repo.GetByID(ctx, id)
		if err != nil {
			fail(c, err)
			return
		}
		body["content"] = m
	}
	form, err := h.Persistor.Get(ctx, authz.Subject(ctx), persistor.ContentFormKey)
	if err != nil {
		logger.Warnf("read persisted form data: %v", err)
	}
	if form != nil {
		body["form"] = form
	}
	c.JSON(http.StatusOK, body)
}

// formData returns the posted fields; single values are stored as strings.
func formData(c *gin.Context) map[string]any {
	if err := c.Request.ParseForm(); err != nil {
		return nil
	}
	data := make(map[string]any, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) == 1 {
			data[k] = v[0]
		} else {
			data[k] = v
		}
	}
	return data
}

func formStores(c *gin.Context) ([]int, error) {
	var out []int
	for _, raw := range c.PostFormArray("store_id") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id < 0 {
				return nil, content.Invalidf("invalid store id %q", part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// decodeContentData returns the element tree posted base64 encoded, or ""
// when it is missing or not valid JSON.
func decodeContentData(raw string) string {
	if raw == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return ""
	}
	if len(b) == 0 || !json.Valid(b) {
		return ""
	}
	return string(b)
}

// Save handles the admin edit form.
func (h *ContentHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	data := formData(c)
	contentType := c.Query("type")
	if contentType == "" {
		contentType = c.PostForm("type")
	}
	if len(data) == 0 {
		redirect(c, referer(c, contentType))
		return
	}
	data["type"] = contentType
	rawID := c.PostForm("content_id")
	id, _ := strconv.ParseInt(rawID, 10, 64)

	if !h.allowed(c, contentType, "save") {
		denied(c, "save")
		return
	}

	var m *content.Content
	if id > 0 {
		var err error
		if m, err = h.Repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, content.ErrNotFound) {
				redirect(c, referer(c, contentType), failure("Page content not found"))
				return
			}
			logger.Errorf("load content %d: %v", id, err)
			redirect(c, referer(c, contentType), failure("Something went wrong when saving the content."))
			return
		}
		if contentType == "" || m.Type != contentType {
			redirect(c, referer(c, contentType), failure(fmt.Sprintf("Invalid content type: %s", contentType)))
			return
		}
	} else {
		m = &content.Content{}
	}

	saved, err := h.apply(c, m, contentType)
	if err == nil {
		h.afterSave(c, saved, []Message{success("You saved the content.")})
		return
	}

	var msgs []Message
	if isDomainError(err) {
		msgs = append(msgs, failure(content.Message(err)))
	} else {
		logger.Errorf("save content %s: %v", rawID, err)
		msgs = append(msgs, failure("Something went wrong while saving the content."))
	}
	if perr := h.Persistor.Set(ctx, authz.Subject(ctx), persistor.ContentFormKey, data); perr != nil {
		logger.Warnf("persist form data: %v", perr)
	}
	redirect(c, editURL(rawID, contentType), msgs...)
}

func isDomainError(err error) bool {
	return errors.Is(err, content.ErrValidation) || errors.Is(err, content.ErrForbidden) || errors.Is(err, content.ErrNotFound)
}

// apply copies the posted fields onto m and saves it.
func (h *ContentHandler) apply(c *gin.Context, m *content.Content, contentType string) (*content.Content, error) {
	ctx := c.Request.Context()
	sub := authz.Subject(ctx)

	if status := c.PostForm("status"); status != "" {
		m.Status = content.Status(status)
	} else if m.IsObjectNew() {
		m.Status = content.StatusPending
	}
	m.Type = contentType

	stores, err := formStores(c)
	if err != nil {
		return nil, err
	}
	if len(stores) > 0 {
		m.StoreIDs = stores
	}
	if m.IsObjectNew() {
		m.AuthorID = sub
	}
	m.LastEditorID = sub
	m.Title = c.PostForm("title")

	if elements := decodeContentData(c.PostForm("content_data")); elements != "" && elements != m.Elements {
		m.Elements = elements
	}

	identifier := strings.TrimSpace(c.PostForm("identifier"))
	if identifier == "" {
		identifier = content.NewIdentifier(m.Type, content.UniqueToken())
	}
	if m.Identifier != identifier {
		m.Identifier = identifier
	}

	saved, err := h.Repo.Save(ctx, m)
	if err != nil {
		return nil, err
	}
	h.Documents.Forget(saved)
	return saved, nil
}

// afterSave picks the redirect: a duplicate, the edit page (back) or the
// grid.
func (h *ContentHandler) afterSave(c *gin.Context, saved *content.Content, msgs []Message) {
	ctx := c.Request.Context()
	back := c.Query("back")
	if back == "" {
		back = c.PostForm("back")
	}

	if back == "duplicate" {
		dup := &content.Content{
			Type:     saved.Type,
			Status:   content.StatusPending,
			Title:    fmt.Sprintf("%s ( Duplicated from #%d )", saved.Title, saved.ID),
			StoreIDs: saved.StoreIDs,
			AuthorID: authz.Subject(ctx),
			Elements: saved.Elements,
			Settings: saved.Settings,
		}
		dup.LastEditorID = dup.AuthorID
		dup.Identifier = content.DuplicateIdentifier(saved.Identifier, content.UniqueToken())
		if _, err := h.Repo.Save(ctx, dup); err != nil {
			if isDomainError(err) {
				msgs = append(msgs, failure(content.Message(err)))
			} else {
				logger.Errorf("duplicate content %d: %v", saved.ID, err)
				msgs = append(msgs, failure("Something went wrong while saving the content."))
			}
			redirect(c, editURL(strconv.FormatInt(saved.ID, 10), saved.Type), msgs...)
			return
		}
		msgs = append(msgs, success("You duplicated the content."))
		redirect(c, editURL(strconv.FormatInt(dup.ID, 10), dup.Type), msgs...)
		return
	}

	if err := h.Persistor.Clear(ctx, authz.Subject(ctx), persistor.ContentFormKey); err != nil {
		logger.Warnf("clear persisted form data: %v", err)
	}
	if back != "" && back != "0" && back != "false" {
		redirect(c, editURL(strconv.FormatInt(saved.ID, 10), saved.Type), msgs...)
		return
	}
	redirect(c, gridURL(saved.Type), msgs...)
}
