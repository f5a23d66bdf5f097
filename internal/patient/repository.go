package patient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

// Repository provides database operations for patients
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new patient repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save saves a new patient
func (r *Repository) Save(ctx context.Context, p *Patient) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_save", time.Since(start)) }()

	query := `
		INSERT INTO patients (
			id, patient_code, name, age, sex, medical_history,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Code, p.Name, p.Age, string(p.Sex), p.MedicalHistory,
		p.CreatedAt, p.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errors.Conflict("patient with this code already exists")
		}
		return errors.Wrap(err, "failed to save patient")
	}

	return nil
}

// FindByID finds a patient by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Patient, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_find", time.Since(start)) }()

	query := `
		SELECT id, patient_code, name, age, sex, medical_history,
			created_at, updated_at
		FROM patients
		WHERE id = ?`

	p := &Patient{}
	var sex string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Code, &p.Name, &p.Age, &sex, &p.MedicalHistory,
		&p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find patient")
	}
	p.Sex = Sex(sex)

	return p, nil
}

// Update updates a patient record
func (r *Repository) Update(ctx context.Context, p *Patient) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_update", time.Since(start)) }()

	query := `
		UPDATE patients SET
			name = ?, age = ?, sex = ?, medical_history = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		p.Name, p.Age, string(p.Sex), p.MedicalHistory, p.UpdatedAt, p.ID,
	)

	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to update patient")
	}
	if rows == 0 {
		return errors.NotFound("patient", p.ID.String())
	}

	return nil
}

// Delete deletes a patient and, via cascade, its measurements and insights
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_delete", time.Since(start)) }()

	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete patient")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete patient")
	}
	if rows == 0 {
		return errors.NotFound("patient", id.String())
	}

	return nil
}

// List lists patients with filters, newest first
func (r *Repository) List(ctx context.Context, filter ListPatientsFilter) ([]Patient, int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_list", time.Since(start)) }()

	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR patient_code LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM patients %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count patients")
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`
		SELECT id, patient_code, name, age, sex, medical_history,
			created_at, updated_at
		FROM patients
		%s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, whereClause)

	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list patients")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		var sex string
		err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Age, &sex, &p.MedicalHistory,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan patient")
		}
		p.Sex = Sex(sex)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to iterate patients")
	}

	return patients, total, nil
}

// All returns every registered patient, newest first. Used where truncation
// would be wrong: the roster export and dashboard name resolution.
func (r *Repository) All(ctx context.Context) ([]Patient, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("patient_all", time.Since(start)) }()

	query := `
		SELECT id, patient_code, name, age, sex, medical_history,
			created_at, updated_at
		FROM patients
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load patients")
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		var sex string
		err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.Age, &sex, &p.MedicalHistory,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan patient")
		}
		p.Sex = Sex(sex)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate patients")
	}

	return patients, nil
}

// Count returns the total number of registered patients
func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "failed to count patients")
	}
	return total, nil
}
