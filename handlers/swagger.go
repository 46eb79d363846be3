package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the Swagger UI and OpenAPI document.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>pagebuilder API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the content service.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "pagebuilder", "version": "v1.0.0" },
  "paths": {
    "/pagebuilder/ajax": {
      "post": {
        "summary": "Run editor actions (save_builder, discard_changes) against one content",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"content_id":{"type":"integer"},"actions":{"type":"object","additionalProperties":{"type":"object","properties":{"action":{"type":"string"},"data":{"type":"object"}}}}}}}}},
        "responses": { "200": { "description": "per-action results" }, "404": { "description": "content not found" } }
      }
    },
    "/pagebuilder/content/{identifier}": { "get": { "summary": "Render a published content", "responses": { "200": { "description": "HTML page" }, "404": { "description": "not found" } } } },
    "/pagebuilder/preview/{id}": { "get": { "summary": "Render any content for editors", "responses": { "200": { "description": "HTML page" } } } },
    "/admin/pagebuilder/content/grid": { "get": { "summary": "List contents of a type", "parameters": [{"name":"type","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "page of contents" }, "403": { "description": "denied" } } } },
    "/admin/pagebuilder/content/edit": { "get": { "summary": "Content and persisted form data for the edit form", "responses": { "200": { "description": "edit data" } } } },
    "/admin/pagebuilder/content/save": { "post": { "summary": "Save the edit form", "parameters": [{"name":"type","in":"query","schema":{"type":"string"}},{"name":"back","in":"query","schema":{"type":"string"}}], "responses": { "303": { "description": "redirect with messages" } } } },
    "/api/types": { "get": { "summary": "Registered document types", "responses": { "200": { "description": "types and properties" } } } },
    "/api/contents": {
      "get": { "summary": "Search contents", "responses": { "200": { "description": "page of contents" } } },
      "post": { "summary": "Create a content", "responses": { "201": { "description": "created" }, "404": { "description": "unknown type" } } }
    },
    "/api/contents/{id}": {
      "get": { "summary": "Get a content", "responses": { "200": { "description": "content" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a content", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/contents/{id}/revisions": { "get": { "summary": "Saved revisions, newest first", "responses": { "200": { "description": "revisions" } } } },
    "/auth/token": { "post": { "summary": "Exchange a verified identity for pagebuilder tokens", "responses": { "200": { "description": "tokens returned" } } } },
    "/auth/refresh": { "post": { "summary": "Rotate the refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } } },
    "/auth/logout": { "post": { "summary": "Revoke the access token and end the session", "responses": { "200": { "description": "logged out" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
