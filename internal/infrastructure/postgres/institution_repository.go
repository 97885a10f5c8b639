package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bankledger/internal/domain/institution"
)

const institutionColumns = `id, name, parent_id, tax_id, active, created_at, updated_at`

// InstitutionRepository implements institution.Repository for PostgreSQL
type InstitutionRepository struct {
	db *DB
}

// NewInstitutionRepository creates a new PostgreSQL institution repository
func NewInstitutionRepository(db *DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

func (r *InstitutionRepository) Create(ctx context.Context, params institution.CreateParams) (*institution.Institution, error) {
	query := `
		INSERT INTO institutions (id, name, parent_id, tax_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + institutionColumns

	inst, err := scanInstitution(r.db.QueryRowContext(ctx, query,
		uuid.New().String(), params.Name, nullStringPtr(params.ParentID), nullString(params.TaxID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}
	return inst, nil
}

func (r *InstitutionRepository) GetByID(ctx context.Context, id string) (*institution.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions WHERE id = $1`

	inst, err := scanInstitution(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, institution.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return inst, nil
}

func (r *InstitutionRepository) List(ctx context.Context) ([]*institution.Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM institutions ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	defer rows.Close()

	var out []*institution.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan institution: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating institutions: %w", err)
	}
	return out, nil
}

func (r *InstitutionRepository) SetParent(ctx context.Context, id string, parentID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE institutions SET parent_id = $2, updated_at = NOW() WHERE id = $1`, id, nullStringPtr(parentID))
	if err != nil {
		return fmt.Errorf("failed to set parent: %w", err)
	}
	return expectOneRow(result, institution.ErrNotFound)
}

func (r *InstitutionRepository) CountChildren(ctx context.Context, id string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM institutions WHERE parent_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count children: %w", err)
	}
	return n, nil
}

func (r *InstitutionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete institution: %w", err)
	}
	return expectOneRow(result, institution.ErrNotFound)
}

func scanInstitution(row rowScanner) (*institution.Institution, error) {
	var inst institution.Institution
	var parentID, taxID sql.NullString

	err := row.Scan(&inst.ID, &inst.Name, &parentID, &taxID, &inst.Active, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		inst.ParentID = &parentID.String
	}
	inst.TaxID = taxID.String
	return &inst, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}
