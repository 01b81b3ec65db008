package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// RouteFinder looks up one logistics route. Implemented by
// database.PostgresDB and database.SupabaseDB.
type RouteFinder interface {
	FindRoute(ctx context.Context, crop, origin, destination string) (*models.Route, error)
}

// LogisticsHandler serves route cost lookups.
type LogisticsHandler struct {
	routes RouteFinder
}

// NewLogisticsHandler creates the logistics handler.
func NewLogisticsHandler(routes RouteFinder) *LogisticsHandler {
	return &LogisticsHandler{routes: routes}
}

// Route handles GET /logistics?crop=&origin=&destination=.
//
// Matching is case-insensitive and exact on all three parameters.
//
// Responses:
//   - 200: {"ok": true, "data": models.Route}
//   - 400: a parameter is missing
//   - 404: no route matches
//   - 500: store failure
//
// @Summary      Look up a logistics route
// @Description  Returns transport distance and cost for a crop between two places. Matching is case-insensitive.
// @Tags         logistics
// @Produce      json
// @Param        crop         query     string  true  "Crop name"
// @Param        origin       query     string  true  "Origin town"
// @Param        destination  query     string  true  "Destination town"
// @Success      200          {object}  utils.DataResponse{data=models.Route}
// @Failure      400          {object}  utils.ErrorResponse  "Missing parameter"
// @Failure      401          {object}  utils.ErrorResponse  "Missing or invalid bearer token"
// @Failure      404          {object}  utils.ErrorResponse  "No route found"
// @Failure      429          {object}  utils.ErrorResponse  "Too many requests"
// @Failure      500          {object}  utils.ErrorResponse  "Internal server error"
// @Security     BearerAuth
// @Router       /logistics [get]
func (h *LogisticsHandler) Route(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	crop := strings.TrimSpace(query.Get("crop"))
	origin := strings.TrimSpace(query.Get("origin"))
	destination := strings.TrimSpace(query.Get("destination"))

	if crop == "" || origin == "" || destination == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "crop, origin and destination are required")
		return
	}

	route, err := h.routes.FindRoute(r.Context(), crop, origin, destination)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", utils.GetRequestID(r.Context())).
			Str("crop", crop).
			Str("origin", origin).
			Str("destination", destination).
			Msg("Failed to look up logistics route")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if route == nil {
		utils.RespondWithError(w, r, http.StatusNotFound, "No route found")
		return
	}

	utils.RespondWithData(w, r, route)
}
