package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trackmed/internal/domain/medication"
)

var ErrMedicationNotFound = fmt.Errorf("medication not found")
var ErrDuplicateMedication = fmt.Errorf("duplicate medication name for user")

type PostgresMedicationRepository struct {
	db *sql.DB
}

func NewPostgresMedicationRepository(db *sql.DB) *PostgresMedicationRepository {
	return &PostgresMedicationRepository{db: db}
}

func (r *PostgresMedicationRepository) Create(ctx context.Context, med *medication.Medication) error {
	query := `INSERT INTO medications (id, user_id, name, drug_info)
              VALUES ($1, $2, $3, $4)
              RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, med.ID, med.UserID, med.Name, med.DrugInfo).
		Scan(&med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "medications_user_name_unique") {
			return ErrDuplicateMedication
		}
		return fmt.Errorf("error creating medication: %w", err)
	}
	return nil
}

func (r *PostgresMedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	query := `SELECT id, user_id, name, drug_info, created_at, updated_at FROM medications WHERE id = $1`
	med := medication.Medication{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&med.ID, &med.UserID, &med.Name, &med.DrugInfo, &med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("error getting medication by ID: %w", err)
	}
	return &med, nil
}

func (r *PostgresMedicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	query := `SELECT id, user_id, name, drug_info, created_at, updated_at
              FROM medications WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing medications: %w", err)
	}
	defer rows.Close()

	var meds []*medication.Medication
	for rows.Next() {
		med := medication.Medication{}
		if err := rows.Scan(&med.ID, &med.UserID, &med.Name, &med.DrugInfo, &med.CreatedAt, &med.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning medication row: %w", err)
		}
		meds = append(meds, &med)
	}
	return meds, rows.Err()
}

func (r *PostgresMedicationRepository) Update(ctx context.Context, med *medication.Medication) error {
	query := `UPDATE medications SET name = $2, drug_info = $3, updated_at = NOW()
              WHERE id = $1
              RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, med.ID, med.Name, med.DrugInfo).Scan(&med.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrMedicationNotFound
		}
		if strings.Contains(err.Error(), "medications_user_name_unique") {
			return ErrDuplicateMedication
		}
		return fmt.Errorf("error updating medication %s: %w", med.ID, err)
	}
	return nil
}

func (r *PostgresMedicationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting medication %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrMedicationNotFound
	}
	return nil
}
