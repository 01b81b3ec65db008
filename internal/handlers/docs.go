package handlers

import (
	"net/http"

	_ "github.com/mkulima/asha/docs" // registers the OpenAPI document
	"github.com/mkulima/asha/internal/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Docs serves the Swagger UI under /api/docs/ and the OpenAPI document at
// /api/docs/doc.json.
//
// Example:
//
//	r.Method(http.MethodGet, "/api/docs/*", handlers.Docs())
func Docs() http.Handler {
	ui := httpSwagger.Handler(
		httpSwagger.URL("/api/docs/doc.json"),
	)
	return middleware.DocsPolicy()(ui)
}
