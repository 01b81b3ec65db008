package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/internal/testutil"
	"github.com/stretchr/testify/assert"
)

type stubRoutes struct {
	route *models.Route
	err   error

	crop, origin, destination string
}

func (s *stubRoutes) FindRoute(_ context.Context, crop, origin, destination string) (*models.Route, error) {
	s.crop, s.origin, s.destination = crop, origin, destination
	return s.route, s.err
}

func TestLogisticsRoute(t *testing.T) {
	serve := func(routes RouteFinder, query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		NewLogisticsHandler(routes).Route(rec, httptest.NewRequest(http.MethodGet, "/logistics"+query, nil))
		return rec
	}

	t.Run("match returns route data", func(t *testing.T) {
		route := testutil.TestRoute()
		routes := &stubRoutes{route: &route}

		rec := serve(routes, "?crop=Maize&origin=%20eldoret%20&destination=NAIROBI")

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		var body struct {
			OK   bool         `json:"ok"`
			Data models.Route `json:"data"`
		}
		testutil.ParseJSONResponse(t, rec, &body)
		assert.True(t, body.OK)
		assert.Equal(t, "route-1", body.Data.ID)
		assert.Equal(t, 4.5, body.Data.CostPerKg)

		assert.Equal(t, "Maize", routes.crop)
		assert.Equal(t, "eldoret", routes.origin)
		assert.Equal(t, "NAIROBI", routes.destination)
	})

	t.Run("missing parameter answers 400", func(t *testing.T) {
		for _, query := range []string{"", "?crop=maize&origin=Eldoret", "?crop=&origin=Eldoret&destination=Nairobi", "?crop=maize&origin=%20&destination=Nairobi"} {
			routes := &stubRoutes{}
			rec := serve(routes, query)

			testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
			testutil.AssertErrorBody(t, rec, "crop, origin and destination are required")
			assert.Empty(t, routes.crop, query)
		}
	})

	t.Run("no match answers 404", func(t *testing.T) {
		rec := serve(&stubRoutes{}, "?crop=maize&origin=Eldoret&destination=Mombasa")

		testutil.AssertStatusCode(t, rec, http.StatusNotFound)
		testutil.AssertErrorBody(t, rec, "No route found")
	})

	t.Run("store failure answers 500", func(t *testing.T) {
		rec := serve(&stubRoutes{err: errors.New("connection refused")}, "?crop=maize&origin=Eldoret&destination=Nairobi")

		testutil.AssertStatusCode(t, rec, http.StatusInternalServerError)
		testutil.AssertErrorBody(t, rec, "Internal server error")
	})
}
