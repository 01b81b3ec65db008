package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

const docPrefix = "/projects/demo/databases/(default)/documents"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "demo", staticTokens{token: "ya29.test"}, server.Client())
}

func TestGetDocument(t *testing.T) {
	t.Run("decodes document", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, docPrefix+"/users/u1", r.URL.Path)
			assert.Equal(t, "Bearer ya29.test", r.Header.Get("Authorization"))
			w.Write([]byte(`{
				"name": "projects/demo/databases/(default)/documents/users/u1",
				"fields": {"fullName": {"stringValue": "Achieng"}, "age": {"integerValue": "31"}},
				"updateTime": "2024-05-01T10:00:00Z"
			}`))
		})

		doc, err := client.GetDocument(context.Background(), "users/u1")
		require.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "u1", doc.ID())
		assert.Equal(t, "Achieng", doc.Data()["fullName"])
		assert.Equal(t, int64(31), doc.Data()["age"])
		assert.False(t, doc.UpdateTime.IsZero())
	})

	t.Run("returns nil on not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"Document not found"}}`))
		})

		doc, err := client.GetDocument(context.Background(), "users/missing")
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("propagates upstream message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"Missing or insufficient permissions."}}`))
		})

		_, err := client.GetDocument(context.Background(), "users/u1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "Missing or insufficient permissions.")
		assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
	})

	t.Run("falls back to raw body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream connect error"))
		})

		_, err := client.GetDocument(context.Background(), "users/u1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream connect error")
	})

	t.Run("token failure is returned", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("request should not be sent")
		}))
		defer server.Close()

		tokenErr := apperr.Configuration("service account credential is missing", nil)
		client := NewClient(server.URL, "demo", staticTokens{err: tokenErr}, server.Client())

		_, err := client.GetDocument(context.Background(), "users/u1")
		assert.True(t, errors.Is(err, tokenErr))
	})

	t.Run("missing project id is a configuration error", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "", staticTokens{token: "x"}, nil)
		_, err := client.GetDocument(context.Background(), "users/u1")
		assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
	})
}

func TestRunQuery(t *testing.T) {
	t.Run("single filter is sent as field filter", func(t *testing.T) {
		var body map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, docPrefix+":runQuery", r.URL.Path)
			data, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(data, &body))
			w.Write([]byte(`[
				{"readTime": "2024-05-01T10:00:00Z"},
				{"document": {"name": "projects/demo/databases/(default)/documents/listings/a", "fields": {"status": {"stringValue": "active"}}}},
				{"document": {"name": "projects/demo/databases/(default)/documents/listings/b", "fields": {}}}
			]`))
		})

		docs, err := client.RunQuery(context.Background(), Query{
			Collection: "listings",
			Filters:    []Filter{Where("status", OpEqual, "active")},
			OrderBy:    []Order{{Field: "updatedAt", Direction: Descending}},
			Limit:      50,
		})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "a", docs[0].ID())
		assert.Equal(t, "b", docs[1].ID())

		sq := body["structuredQuery"].(map[string]any)
		where := sq["where"].(map[string]any)
		assert.Contains(t, where, "fieldFilter")
		assert.NotContains(t, where, "compositeFilter")
		assert.Equal(t, float64(50), sq["limit"])
		assert.Equal(t, []any{map[string]any{"collectionId": "listings"}}, sq["from"])
	})

	t.Run("multiple filters are combined with AND", func(t *testing.T) {
		data, err := json.Marshal(Query{
			Collection: "farms",
			Filters: []Filter{
				Where("ownerId", OpEqual, "u1"),
				Where("size", OpGreaterThan, 2),
			},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"structuredQuery": {
			"from": [{"collectionId": "farms"}],
			"where": {"compositeFilter": {"op": "AND", "filters": [
				{"fieldFilter": {"field": {"fieldPath": "ownerId"}, "op": "EQUAL", "value": {"stringValue": "u1"}}},
				{"fieldFilter": {"field": {"fieldPath": "size"}, "op": "GREATER_THAN", "value": {"integerValue": "2"}}}
			]}}
		}}`, string(data))
	})

	t.Run("subcollection parent is part of the path", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, docPrefix+"/users/u1:runQuery", r.URL.Path)
			w.Write([]byte(`[]`))
		})

		docs, err := client.RunQuery(context.Background(), Query{Parent: "users/u1", Collection: "farms"})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("non-success is upstream error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"invalid query"}}`))
		})

		_, err := client.RunQuery(context.Background(), Query{Collection: "listings"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "invalid query")
	})
}
