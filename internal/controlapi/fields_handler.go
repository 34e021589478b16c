package controlapi

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/cache"
	"github.com/rafaeljc/adentity/internal/logger"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/widget"
)

// fieldOwner reads and validates the {entity_type}/{entity_id}/{field_name} path.
func fieldOwner(r *http.Request) (store.FieldOwner, *ErrorResponse) {
	owner := store.FieldOwner{
		EntityType: chi.URLParam(r, "entity_type"),
		EntityID:   chi.URLParam(r, "entity_id"),
		FieldName:  chi.URLParam(r, "field_name"),
	}
	if err := owner.Validate(); err != nil {
		return owner, &ErrorResponse{Code: "ERR_INVALID_INPUT", Message: err.Error()}
	}
	return owner, nil
}

// handleGetField processes GET /api/v1/fields/{entity_type}/{entity_id}/{field_name}.
// With ?placement=<id> only the values that apply to that placement are returned.
func (a *API) handleGetField(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	placement := r.URL.Query().Get("placement")
	owner, errResp := fieldOwner(r)
	if errResp == nil && placement != "" {
		errResp = validatePlacementID(placement)
	}
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	values, err := a.store.LoadAssignments(r.Context(), owner)
	if err != nil {
		a.writeStoreError(w, r, log, err, "field")
		return
	}

	if placement != "" {
		filtered := *values
		filtered.Assignments = slices.DeleteFunc(slices.Clone(values.Assignments), func(v adcontext.Assignment) bool {
			return !v.AppliesTo(placement)
		})
		values = &filtered
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, fieldValuesResponse(values))
}

// handleFieldForm processes GET .../form: the form tree for the stored
// values plus one empty value.
func (a *API) handleFieldForm(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	owner, errResp := fieldOwner(r)
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	values, err := a.store.LoadAssignments(r.Context(), owner)
	if err != nil {
		a.writeStoreError(w, r, log, err, "field")
		return
	}

	root, err := a.widget.Form(r.Context(), values.Assignments, nil)
	if err != nil {
		log.Error("failed to build field form", slog.String("field", owner.Key()), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to build form")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, root)
}

// handleSaveField processes PUT .../: the submitted values are normalized
// and, if every one is valid, replace the stored list.
func (a *API) handleSaveField(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	owner, errResp := fieldOwner(r)
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	var req SaveFieldRequest
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

	assignments, err := a.widget.MassageValues(r.Context(), req.Values)
	if err != nil {
		var vErr *widget.ValidationError
		if errors.As(err, &vErr) {
			resp := ValidationErrorResponse{ErrorResponse: validationResponse(vErr)}
			resp.Form, err = a.widget.Form(r.Context(), widget.Drafts(req.Values), vErr.State())
			if err != nil {
				log.Warn("failed to rebuild rejected form", slog.String("field", owner.Key()), slog.String("error", err.Error()))
			}
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, resp)
			return
		}
		log.Error("failed to normalize values", slog.String("field", owner.Key()), slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to process values")
		return
	}

	saved, err := a.store.SaveAssignments(r.Context(), owner, assignments)
	if err != nil {
		a.writeStoreError(w, r, log, err, "field")
		return
	}

	a.notifyCacheAsync(log, cache.ContextKey(owner.Key()), saved.Version)

	log.Info("field values saved",
		slog.String("field", owner.Key()),
		slog.Int("values", len(saved.Assignments)),
		slog.Int64("version", saved.Version),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, fieldValuesResponse(saved))
}

// validationResponse addresses each detail as "values.<delta>.<field>".
func validationResponse(vErr *widget.ValidationError) ErrorResponse {
	details := make([]ErrorDetail, len(vErr.Errors))
	for i, fe := range vErr.Errors {
		details[i] = ErrorDetail{
			Field: strings.Join([]string{"values", strconv.Itoa(fe.Delta), fe.Field}, "."),
			Issue: fe.Err.Error(),
		}
	}
	return ErrorResponse{
		Code:    "ERR_VALIDATION",
		Message: "One or more values are invalid",
		Details: details,
	}
}
