package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/content/repository"
	"github.com/gogotex/pagebuilder/internal/document"
	"github.com/gogotex/pagebuilder/internal/editor"
	"github.com/gogotex/pagebuilder/internal/hooks"
	"github.com/gogotex/pagebuilder/internal/persistor"
	"github.com/gogotex/pagebuilder/internal/revision"
	"github.com/gogotex/pagebuilder/internal/scope"
)

const editorSub = "editor-1"

type fixture struct {
	r       *gin.Engine
	repo    *repository.Repository
	docs    *document.Registry
	persist *persistor.MemoryPersistor
	revs    *revision.MemoryStore
}

// asEditor stands in for the auth middleware.
func asEditor(c *gin.Context) {
	ctx := authz.WithClaims(c.Request.Context(), map[string]interface{}{"sub": editorSub})
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func newFixture(t *testing.T, az authz.Authorizer) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	stores := scope.ContextResolver{Default: 1}

	reg := document.NewRegistry(&document.Env{})
	revs := revision.NewMemoryStore()
	repo := repository.New(repository.NewMemoryStore(), reg, az, stores, repository.WithRevisions(revs))
	reg.UseRepository(repo)

	svc := editor.NewService(reg)
	ajax := editor.NewAjax(az)
	ajax.OnRegister().Add(svc.RegisterActions, hooks.DefaultPriority)

	header := hooks.NewAction[io.Writer]("header")
	header.Add(func(w io.Writer) { _, _ = io.WriteString(w, `<meta name="generator" content="pagebuilder">`) }, hooks.DefaultPriority)
	footer := hooks.NewAction[io.Writer]("footer")
	footer.Add(func(w io.Writer) { _, _ = io.WriteString(w, `<script src="/footer.js"></script>`) }, hooks.DefaultPriority)

	persist := persistor.NewMemoryPersistor(time.Hour)
	h := NewContentHandler(ContentDeps{
		Repo:      repo,
		Documents: reg,
		Actions:   ajax,
		Authz:     az,
		Persistor: persist,
		Stores:    stores,
		Header:    header,
		Footer:    footer,
	})
	r := gin.New()
	r.Use(scope.Middleware())
	h.Register(r, asEditor)
	return &fixture{r: r, repo: repo, docs: reg, persist: persist, revs: revs}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) create(t *testing.T, contentType string, fields document.Fields) *content.Content {
	t.Helper()
	d, err := f.docs.Create(context.Background(), contentType, fields)
	require.NoError(t, err)
	return d.Content()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAjax_SaveBuilder(t *testing.T) {
	f := newFixture(t, authz.AllowAll())
	m := f.create(t, content.TypePage, document.Fields{Title: "Home"})

	body := `{"content_id": ` + jsonInt(m.ID) + `, "actions": {
		"save": {"action": "save_builder", "data": {"status": "published", "elements": [{"id": "a"}]}},
		"discard": {"action": "discard_changes"}
	}}`
	w := f.do(jsonRequest(http.MethodPost, "/pagebuilder/ajax", body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Success   bool                     `json:"success"`
		Responses map[string]editor.Result `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.True(t, got.Success)
	require.True(t, got.Responses["save"].Success, "%v", got.Responses["save"].Data)
	require.Equal(t, false, got.Responses["discard"].Data)

	data := got.Responses["save"].Data.(map[string]interface{})
	doc := data["config"].(map[string]interface{})["document"].(map[string]interface{})
	require.Contains(t, doc["last_edited"], "Last edited on")
	require.Equal(t, "/pagebuilder/content/"+m.Identifier, doc["urls"].(map[string]interface{})["preview"])

	stored, err := f.repo.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, content.StatusPublished, stored.Status)
	require.Equal(t, `[{"id":"a"}]`, stored.Elements)
	require.Equal(t, editorSub, stored.LastEditorID)
}

func TestAjax_ContentNotFound(t *testing.T) {
	f := newFixture(t, authz.AllowAll())
	for _, body := range []string{
		`{"actions": {"a": {"action": "discard_changes"}}}`,
		`{"content_id": 99, "actions": {"a": {"action": "discard_changes"}}}`,
	} {
		w := f.do(jsonRequest(http.MethodPost, "/pagebuilder/ajax", body))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "Page content not found", decode(t, w)["error"])
	}

	m := f.create(t, content.TypeSection, document.Fields{})
	w := f.do(jsonRequest(http.MethodPost, "/pagebuilder/ajax?content_id="+jsonInt(m.ID), `{"actions": {"a": {"action": "discard_changes"}}}`))
	require.Equal(t, http.StatusOK, w.Code, "content_id from the query string")
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestStorefront(t *testing.T) {
	f := newFixture(t, authz.AllowAll())
	f.create(t, content.TypePage, document.Fields{Identifier: "home", Title: "Home <1>", Status: content.StatusPublished, Elements: `[{"id":"x"}]`})
	f.create(t, content.TypePage, document.Fields{Identifier: "draft", Status: content.StatusPending})
	f.create(t, content.TypePage, document.Fields{Identifier: "store-two", Status: content.StatusPublished, StoreIDs: []int{2}})

	w := f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/content/home", nil))
	require.Equal(t, http.StatusOK, w.Code)
	html := w.Body.String()
	require.Contains(t, html, "<title>Home &lt;1&gt;</title>")
	require.Contains(t, html, `<meta name="generator" content="pagebuilder"></head>`)
	require.Contains(t, html, `<script src="/footer.js"></script></body>`)
	require.Contains(t, html, `data-elements="[{&#34;id&#34;:&#34;x&#34;}]"`)

	w = f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/content/draft", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/content/store-two", nil))
	require.Equal(t, http.StatusNotFound, w.Code, "default store 1 cannot see store 2")

	req := httptest.NewRequest(http.MethodGet, "/pagebuilder/content/store-two", nil)
	req.Header.Set("X-Store-Id", "2")
	require.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, authz.AllowAll())
	m := f.create(t, content.TypeSection, document.Fields{Status: content.StatusPending})

	w := f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/preview/"+jsonInt(m.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "noindex, nofollow", w.Header().Get("X-Robots-Tag"))
	require.Contains(t, w.Body.String(), "pagebuilder-section")

	w = f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/preview/abc", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/preview/404", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	denied := newFixture(t, authz.StaticAuthorizer{"pagebuilder::section_save": true})
	m = denied.create(t, content.TypeSection, document.Fields{})
	w = denied.do(httptest.NewRequest(http.MethodGet, "/pagebuilder/preview/"+jsonInt(m.ID), nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
