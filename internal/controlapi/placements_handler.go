package controlapi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// handleCreatePlacement processes POST /api/v1/placements.
func (a *API) handleCreatePlacement(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreatePlacementRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		writeError(w, r, http.StatusBadRequest, "ERR_INVALID_JSON", "Invalid JSON payload: "+err.Error())
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	p := &store.Placement{ID: req.ID, Label: req.Label}
	if err := a.store.CreatePlacement(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, r, http.StatusConflict, "ERR_CONFLICT", "A placement with this id already exists")
			return
		}
		log.Error("failed to create placement", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to create placement")
		return
	}

	a.placements.Invalidate()
	a.notifyCacheAsync(log, cache.PlacementKey(p.ID), p.Version)

	log.Info("placement created", slog.String("placement_id", p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, placementResponse(p))
}

// handleListPlacements processes GET /api/v1/placements?page=&page_size=.
func (a *API) handleListPlacements(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "ERR_INVALID_QUERY_PARAM", err.Error())
		return
	}
	pageSize, err := parseOptionalInt(r, "page_size", defaultPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "ERR_INVALID_QUERY_PARAM", err.Error())
		return
	}

	// Out of range values are clamped rather than rejected.
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	placements, total, err := a.store.ListPlacements(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error("failed to list placements", slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to list placements")
		return
	}

	dtos := make([]Placement, len(placements))
	for i, p := range placements {
		dtos[i] = placementResponse(p)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: dtos,
		Pagination: Pagination{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// handleGetPlacement processes GET /api/v1/placements/{id}.
func (a *API) handleGetPlacement(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	if errResp := validatePlacementID(id); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	p, err := a.store.GetPlacement(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, log, err, "placement")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, placementResponse(p))
}

// handleUpdatePlacement processes PATCH /api/v1/placements/{id}.
func (a *API) handleUpdatePlacement(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	if errResp := validatePlacementID(id); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	var req UpdatePlacementRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "ERR_INVALID_JSON", "Invalid JSON payload: "+err.Error())
		return
	}
	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	params := &store.UpdatePlacementParams{ID: id, Label: req.Label}
	if req.Version != nil {
		params.Version = *req.Version
	}

	p, err := a.store.UpdatePlacement(r.Context(), params)
	if err != nil {
		a.writeStoreError(w, r, log, err, "placement")
		return
	}

	a.placements.Invalidate()
	a.notifyCacheAsync(log, cache.PlacementKey(p.ID), p.Version)

	log.Info("placement updated", slog.String("placement_id", p.ID), slog.Int64("version", p.Version))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, placementResponse(p))
}

// handleDeletePlacement processes DELETE /api/v1/placements/{id}. Assignments
// that reference the placement keep the id until their field is saved again;
// the id is no longer offered in forms and a save that still sends it is rejected.
func (a *API) handleDeletePlacement(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	if errResp := validatePlacementID(id); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.store.DeletePlacement(r.Context(), id); err != nil {
		a.writeStoreError(w, r, log, err, "placement")
		return
	}

	a.placements.Invalidate()
	a.notifyCacheAsync(log, cache.PlacementKey(id), 0)

	log.Info("placement deleted", slog.String("placement_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps repository sentinels onto HTTP responses.
func (a *API) writeStoreError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, resource string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "ERR_NOT_FOUND", fmt.Sprintf("The %s was not found", resource))
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, r, http.StatusConflict, "ERR_CONFLICT", fmt.Sprintf("The %s was modified by another request", resource))
	default:
		log.Error("store operation failed", slog.String("resource", resource), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Internal server error")
	}
}

// parseOptionalInt returns defaultValue when key is absent and an error only
// when it is present but not an integer.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}
