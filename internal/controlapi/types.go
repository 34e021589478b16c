package controlapi

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/form"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/widget"
)

// placementIDRegex matches machine names: lowercase letters, digits and underscores.
var placementIDRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

const (
	maxPlacementIDLength    = 64
	maxPlacementLabelLength = 255
)

// Placement is the placement resource returned by the API.
type Placement struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	Label     string    `json:"label"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func placementResponse(p *store.Placement) Placement {
	return Placement{
		ID:        p.ID,
		UUID:      p.UUID,
		Label:     p.Label,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func validatePlacementID(id string) *ErrorResponse {
	switch {
	case id == "":
		return invalidInput("id", "ID is required")
	case len(id) > maxPlacementIDLength:
		return invalidInput("id", "ID must be at most 64 characters")
	case !placementIDRegex.MatchString(id):
		return invalidInput("id", "ID must only contain lowercase letters, numbers and underscores")
	}
	return nil
}

func validatePlacementLabel(label string) *ErrorResponse {
	if label == "" {
		return invalidInput("label", "Label is required")
	}
	if utf8.RuneCountInString(label) > maxPlacementLabelLength {
		return invalidInput("label", "Label must be at most 255 characters")
	}
	return nil
}

// CreatePlacementRequest is the payload of POST /placements.
type CreatePlacementRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Sanitize trims whitespace and lowercases the machine name.
func (r *CreatePlacementRequest) Sanitize() {
	r.ID = strings.ToLower(strings.TrimSpace(r.ID))
	r.Label = strings.TrimSpace(r.Label)
}

func (r *CreatePlacementRequest) Validate() *ErrorResponse {
	if err := validatePlacementID(r.ID); err != nil {
		return err
	}
	return validatePlacementLabel(r.Label)
}

// UpdatePlacementRequest is the payload of PATCH /placements/{id}. Version,
// when set, must match the stored version.
type UpdatePlacementRequest struct {
	Label   *string `json:"label,omitempty"`
	Version *int64  `json:"version,omitempty"`
}

func (r *UpdatePlacementRequest) Sanitize() {
	if r.Label != nil {
		trimmed := strings.TrimSpace(*r.Label)
		r.Label = &trimmed
	}
}

func (r *UpdatePlacementRequest) Validate() *ErrorResponse {
	if r.Label != nil {
		if err := validatePlacementLabel(*r.Label); err != nil {
			return err
		}
	}
	if r.Version != nil && *r.Version < 1 {
		return invalidInput("version", "Version must be a positive integer")
	}
	return nil
}

// FieldValues is the stored assignment list of one field.
type FieldValues struct {
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	FieldName  string                 `json:"field_name"`
	Values     []adcontext.Assignment `json:"values"`
	Version    int64                  `json:"version"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
}

func fieldValuesResponse(v *store.FieldValues) FieldValues {
	resp := FieldValues{
		EntityType: v.Owner.EntityType,
		EntityID:   v.Owner.EntityID,
		FieldName:  v.Owner.FieldName,
		Values:     v.Assignments,
		Version:    v.Version,
	}
	if resp.Values == nil {
		resp.Values = []adcontext.Assignment{}
	}
	if !v.UpdatedAt.IsZero() {
		resp.UpdatedAt = &v.UpdatedAt
	}
	return resp
}

// SaveFieldRequest is the payload of PUT /fields/...: the submitted values in
// form order, including empty ones, which are dropped.
type SaveFieldRequest struct {
	Values []widget.Submission `json:"values"`
}

func (r *SaveFieldRequest) Sanitize() {
	for i := range r.Values {
		r.Values[i].RuleTypeID = strings.TrimSpace(r.Values[i].RuleTypeID)
	}
}

func (r *SaveFieldRequest) Validate() *ErrorResponse {
	if r.Values == nil {
		return invalidInput("values", "Values must be an array")
	}
	return nil
}

// PaginatedResponse wraps list endpoints that support offset pagination.
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination metadata for the frontend pager.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// ErrorResponse is the structured API error.
type ErrorResponse struct {
	// Code is machine readable, e.g. "ERR_INVALID_INPUT".
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ValidationErrorResponse is the 422 body of PUT /fields: the details plus
// the form rebuilt from the submission with each error on its element.
type ValidationErrorResponse struct {
	ErrorResponse
	Form *form.Element `json:"form,omitempty"`
}

// ErrorDetail points at one rejected field.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func invalidInput(field, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    "ERR_INVALID_INPUT",
		Message: message,
		Details: []ErrorDetail{{Field: field, Issue: message}},
	}
}
