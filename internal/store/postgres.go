package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/validation"
)

var _ Store = (*PostgresStore)(nil)

// pgUniqueViolation is the SQLSTATE of unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an established pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresStore{db: db}
}

const placementColumns = `id, uuid::text, label, version, created_at, updated_at`

func scanPlacement(row pgx.Row) (*Placement, error) {
	var p Placement
	if err := row.Scan(&p.ID, &p.UUID, &p.Label, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlacement inserts p. The uuid and timestamps come from the database.
func (s *PostgresStore) CreatePlacement(ctx context.Context, p *Placement) error {
	query := `
		INSERT INTO placements (id, label)
		VALUES ($1, $2)
		RETURNING uuid::text, version, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query, p.ID, p.Label).Scan(&p.UUID, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("placement %q: %w", p.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert placement: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlacement(ctx context.Context, id string) (*Placement, error) {
	query := `SELECT ` + placementColumns + ` FROM placements WHERE id = $1`

	p, err := scanPlacement(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("placement %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get placement: %w", err)
	}
	return p, nil
}

// ListPlacements runs a count query and a page query; ordering by id keeps pages stable.
func (s *PostgresStore) ListPlacements(ctx context.Context, limit, offset int) ([]*Placement, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM placements`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count placements: %w", err)
	}
	if total == 0 {
		return []*Placement{}, 0, nil
	}

	query := `SELECT ` + placementColumns + ` FROM placements ORDER BY id LIMIT $1 OFFSET $2`
	placements, err := s.queryPlacements(ctx, query, limit, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return placements, total, nil
}

func (s *PostgresStore) ListAllPlacements(ctx context.Context) ([]*Placement, error) {
	query := `SELECT ` + placementColumns + ` FROM placements ORDER BY label, id`
	return s.queryPlacements(ctx, query, 16)
}

func (s *PostgresStore) queryPlacements(ctx context.Context, query string, capacity int, args ...any) ([]*Placement, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	placements := make([]*Placement, 0, capacity)
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placement row: %w", err)
		}
		placements = append(placements, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return placements, nil
}

// UpdatePlacement applies params and bumps the version. With a non-zero
// Version the update only succeeds if it matches the stored one.
func (s *PostgresStore) UpdatePlacement(ctx context.Context, params *UpdatePlacementParams) (*Placement, error) {
	query := `
		UPDATE placements
		SET label = COALESCE($2, label),
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND ($3::bigint = 0 OR version = $3)
		RETURNING ` + placementColumns

	p, err := scanPlacement(s.db.QueryRow(ctx, query, params.ID, params.Label, params.Version))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update placement: %w", err)
	}

	// Distinguish a missing row from a stale version.
	if _, getErr := s.GetPlacement(ctx, params.ID); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("placement %q: %w", params.ID, ErrVersionConflict)
}

func (s *PostgresStore) DeletePlacement(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM placements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete placement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("placement %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) LoadAssignments(ctx context.Context, owner FieldOwner) (*FieldValues, error) {
	values := &FieldValues{Owner: owner, Assignments: []adcontext.Assignment{}}

	err := s.db.QueryRow(ctx, `
		SELECT version, updated_at FROM context_fields
		WHERE entity_type = $1 AND entity_id = $2 AND field_name = $3`,
		owner.EntityType, owner.EntityID, owner.FieldName,
	).Scan(&values.Version, &values.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load field %s: %w", owner.Key(), err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT rule_type_id, apply_to, rule_settings
		FROM context_assignments
		WHERE entity_type = $1 AND entity_id = $2 AND field_name = $3
		ORDER BY delta`,
		owner.EntityType, owner.EntityID, owner.FieldName)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments of %s: %w", owner.Key(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a        adcontext.Assignment
			settings []byte
		)
		if err := rows.Scan(&a.RuleTypeID, &a.ApplyTo, &settings); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		if err := json.Unmarshal(settings, &a.RuleSettings); err != nil {
			return nil, fmt.Errorf("failed to decode rule settings of %s: %w", owner.Key(), err)
		}
		values.Assignments = append(values.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	values.Assignments = normalizeAssignments(values.Assignments)
	return values, nil
}

// SaveAssignments rewrites the field's rows inside one transaction.
func (s *PostgresStore) SaveAssignments(ctx context.Context, owner FieldOwner, assignments []adcontext.Assignment) (*FieldValues, error) {
	assignments = normalizeAssignments(assignments)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	values := &FieldValues{Owner: owner, Assignments: assignments}
	err = tx.QueryRow(ctx, `
		INSERT INTO context_fields (entity_type, entity_id, field_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_type, entity_id, field_name)
		DO UPDATE SET version = context_fields.version + 1, updated_at = now()
		RETURNING version, updated_at`,
		owner.EntityType, owner.EntityID, owner.FieldName,
	).Scan(&values.Version, &values.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert field %s: %w", owner.Key(), err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM context_assignments
		WHERE entity_type = $1 AND entity_id = $2 AND field_name = $3`,
		owner.EntityType, owner.EntityID, owner.FieldName); err != nil {
		return nil, fmt.Errorf("failed to clear assignments of %s: %w", owner.Key(), err)
	}

	batch := &pgx.Batch{}
	for delta, a := range assignments {
		settings, err := json.Marshal(a.RuleSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to encode rule settings: %w", err)
		}
		batch.Queue(`
			INSERT INTO context_assignments
				(entity_type, entity_id, field_name, delta, rule_type_id, apply_to, rule_settings)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			owner.EntityType, owner.EntityID, owner.FieldName, delta, a.RuleTypeID, a.ApplyTo, settings)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("failed to insert assignments of %s: %w", owner.Key(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit assignments of %s: %w", owner.Key(), err)
	}
	return values, nil
}

func (s *PostgresStore) ListFieldOwners(ctx context.Context) ([]FieldOwner, error) {
	rows, err := s.db.Query(ctx, `
		SELECT entity_type, entity_id, field_name
		FROM context_fields
		ORDER BY entity_type, entity_id, field_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	owners := make([]FieldOwner, 0)
	for rows.Next() {
		var o FieldOwner
		if err := rows.Scan(&o.EntityType, &o.EntityID, &o.FieldName); err != nil {
			return nil, fmt.Errorf("failed to scan field row: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return owners, nil
}
