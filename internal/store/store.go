// Package store is the persistence layer for placements and context assignments.
// PostgreSQL is the production backend; an in-memory implementation serves
// local development and unit tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rafaeljc/adentity/internal/adcontext"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a create collides with an existing id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("version conflict")
)

// Placement is an advertising placement: a machine name plus a display label.
type Placement struct {
	ID        string    `db:"id"`
	UUID      string    `db:"uuid"`
	Label     string    `db:"label"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpdatePlacementParams is a partial update. A zero Version skips the optimistic lock.
type UpdatePlacementParams struct {
	ID      string
	Label   *string
	Version int64
}

// FieldOwner identifies the field instance that holds context assignments,
// e.g. {node, 42, field_ad_context}.
type FieldOwner struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	FieldName  string `json:"field_name"`
}

var ownerPartRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Validate checks that every part is a non-empty slug free of separators.
func (o FieldOwner) Validate() error {
	parts := [...]struct{ name, value string }{
		{"entity_type", o.EntityType},
		{"entity_id", o.EntityID},
		{"field_name", o.FieldName},
	}
	for _, p := range parts {
		if !ownerPartRe.MatchString(p.value) {
			return fmt.Errorf("%s %q must match %s", p.name, p.value, ownerPartRe)
		}
	}
	return nil
}

// Key is the stable string form, "entity_type:entity_id:field_name".
func (o FieldOwner) Key() string {
	return o.EntityType + ":" + o.EntityID + ":" + o.FieldName
}

// ParseFieldOwner is the inverse of FieldOwner.Key.
func ParseFieldOwner(key string) (FieldOwner, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		return FieldOwner{}, fmt.Errorf("field owner key %q must have three parts", key)
	}
	o := FieldOwner{EntityType: parts[0], EntityID: parts[1], FieldName: parts[2]}
	return o, o.Validate()
}

// FieldValues is the stored list of assignments of one field.
type FieldValues struct {
	Owner       FieldOwner             `json:"owner"`
	Assignments []adcontext.Assignment `json:"assignments"`
	Version     int64                  `json:"version"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// PlacementRepository persists placements.
type PlacementRepository interface {
	// CreatePlacement inserts p and fills in UUID, Version and timestamps.
	CreatePlacement(ctx context.Context, p *Placement) error

	GetPlacement(ctx context.Context, id string) (*Placement, error)

	// ListPlacements returns a page ordered by id and the total count.
	ListPlacements(ctx context.Context, limit, offset int) ([]*Placement, int64, error)

	// ListAllPlacements returns every placement ordered by label, then id.
	ListAllPlacements(ctx context.Context) ([]*Placement, error)

	UpdatePlacement(ctx context.Context, params *UpdatePlacementParams) (*Placement, error)

	DeletePlacement(ctx context.Context, id string) error
}

// AssignmentRepository persists the context assignments of field instances.
type AssignmentRepository interface {
	// LoadAssignments returns the stored values; a field never saved yields
	// an empty list with version 0.
	LoadAssignments(ctx context.Context, owner FieldOwner) (*FieldValues, error)

	// SaveAssignments replaces every value of the field atomically and bumps its version.
	SaveAssignments(ctx context.Context, owner FieldOwner, assignments []adcontext.Assignment) (*FieldValues, error)

	// ListFieldOwners returns every field that was ever saved.
	ListFieldOwners(ctx context.Context) ([]FieldOwner, error)
}

// Store is the full persistence surface used by the control plane and the syncer.
type Store interface {
	PlacementRepository
	AssignmentRepository
}

func normalizeAssignments(in []adcontext.Assignment) []adcontext.Assignment {
	out := make([]adcontext.Assignment, len(in))
	for i, a := range in {
		if a.ApplyTo == nil {
			a.ApplyTo = []string{}
		}
		if a.RuleSettings == nil {
			a.RuleSettings = map[string]adcontext.Settings{}
		}
		out[i] = a
	}
	return out
}
