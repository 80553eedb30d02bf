package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the portfolio API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
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
    <title>portfolio-api Swagger</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "portfolio-api", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Error": { "type": "object", "properties": { "message": {"type":"string"}, "error": {"type":"string"} } },
      "Result": { "type": "object", "properties": { "success": {"type":"boolean"}, "message": {"type":"string"}, "item": {"type":"object"} } }
    }
  },
  "paths": {
    "/api/portfolio": {
      "get": { "summary": "Get the whole portfolio data", "responses": { "200": { "description": "data object, {} when empty" }, "500": { "description": "store error" } } },
      "put": { "summary": "Replace the whole portfolio data", "requestBody": { "content": { "application/json": { "schema": {"type":"object"} } } }, "responses": { "200": { "description": "updated" }, "400": { "description": "body is not an object" }, "500": { "description": "store error" } } }
    },
    "/api/portfolio/{section}": {
      "get": { "summary": "Get one section", "parameters": [{"name":"section","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "section value" }, "400": { "description": "invalid section name" }, "404": { "description": "section not found" } } },
      "put": { "summary": "Replace one section", "parameters": [{"name":"section","in":"path","required":true,"schema":{"type":"string"}}], "requestBody": { "content": { "application/json": { "schema": {} } } }, "responses": { "200": { "description": "updated" }, "400": { "description": "invalid section name or body" } } }
    },
    "/api/portfolio/{section}/{arrayField}": {
      "post": { "summary": "Append an item to an array field", "parameters": [{"name":"section","in":"path","required":true,"schema":{"type":"string"}},{"name":"arrayField","in":"path","required":true,"schema":{"type":"string"}}], "requestBody": { "content": { "application/json": { "schema": {"type":"object"} } } }, "responses": { "201": { "description": "item added, _id assigned when missing" }, "400": { "description": "invalid target or body" }, "409": { "description": "field is not an array" } } }
    },
    "/api/portfolio/{section}/{arrayField}/{itemId}": {
      "put": { "summary": "Replace the item with this _id", "parameters": [{"name":"section","in":"path","required":true,"schema":{"type":"string"}},{"name":"arrayField","in":"path","required":true,"schema":{"type":"string"}},{"name":"itemId","in":"path","required":true,"schema":{"type":"string"}}], "requestBody": { "required": true, "content": { "application/json": { "schema": { "type": "object" } } } }, "responses": { "200": { "description": "updated" }, "400": { "description": "invalid target or body" }, "404": { "description": "item not found" } } },
      "delete": { "summary": "Remove items by _id", "parameters": [{"name":"section","in":"path","required":true,"schema":{"type":"string"}},{"name":"arrayField","in":"path","required":true,"schema":{"type":"string"}},{"name":"itemId","in":"path","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "deleted" }, "404": { "description": "item not found" } } }
    },
    "/api/assets": {
      "post": { "summary": "Upload an image (multipart field file, optional folder)", "responses": { "201": { "description": "key and presigned url" }, "400": { "description": "missing or unsupported file" } } }
    },
    "/api/assets/{key}": {
      "get": { "summary": "Redirect to a presigned asset URL", "responses": { "307": { "description": "redirect" }, "404": { "description": "asset not found" } } },
      "delete": { "summary": "Delete an asset", "responses": { "204": { "description": "deleted" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
