package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocs(t *testing.T) {
	handler := Docs()

	t.Run("serves the OpenAPI document", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var doc struct {
			Swagger string                    `json:"swagger"`
			Info    map[string]any            `json:"info"`
			Paths   map[string]map[string]any `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, "2.0", doc.Swagger)
		assert.Equal(t, "Asha Assistant API", doc.Info["title"])
		assert.Contains(t, doc.Paths["/asha/chat"], "post")
		assert.Contains(t, doc.Paths["/logistics"], "get")
	})

	t.Run("index page is allowed to run its scripts", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/index.html", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "'unsafe-inline'")
	})
}
