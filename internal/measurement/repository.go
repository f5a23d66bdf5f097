package measurement

import (
	"context"
	"database/sql"
	"time"

	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

// Repository provides database operations for measurements
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new measurement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save appends a measurement to a patient's history
func (r *Repository) Save(ctx context.Context, m *Measurement) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("measurement_save", time.Since(start)) }()

	query := `
		INSERT INTO measurements (id, patient_id, kind, value, unit, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.PatientID, string(m.Kind), m.Value, m.Unit, m.RecordedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save measurement")
	}

	return nil
}

// ListByPatient returns a patient's full measurement history, newest first
func (r *Repository) ListByPatient(ctx context.Context, patientID types.ID) ([]Measurement, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("measurement_list", time.Since(start)) }()

	query := `
		SELECT id, patient_id, kind, value, unit, recorded_at
		FROM measurements
		WHERE patient_id = ?
		ORDER BY recorded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list measurements")
	}
	defer rows.Close()

	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		var kind string
		if err := rows.Scan(&m.ID, &m.PatientID, &kind, &m.Value, &m.Unit, &m.RecordedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan measurement")
		}
		m.Kind = Kind(kind)
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate measurements")
	}

	return measurements, nil
}

// LatestByPatient returns the most recent value per kind, optionally limited
// to measurements recorded after `since` (zero time means unlimited). This is
// the snapshot the scoring engine consumes.
func (r *Repository) LatestByPatient(ctx context.Context, patientID types.ID, since time.Time) (map[Kind]float64, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("measurement_latest", time.Since(start)) }()

	query := `
		SELECT m.kind, m.value
		FROM measurements m
		JOIN (
			SELECT kind, MAX(recorded_at) AS max_recorded
			FROM measurements
			WHERE patient_id = ? AND recorded_at >= ?
			GROUP BY kind
		) latest ON m.kind = latest.kind AND m.recorded_at = latest.max_recorded
		WHERE m.patient_id = ?`

	rows, err := r.db.QueryContext(ctx, query, patientID, since, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest measurements")
	}
	defer rows.Close()

	latest := make(map[Kind]float64)
	for rows.Next() {
		var kind string
		var value float64
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan latest measurement")
		}
		latest[Kind(kind)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate latest measurements")
	}

	return latest, nil
}
