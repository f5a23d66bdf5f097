package insight

import (
	"context"
	"database/sql"
	"time"

	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

// Repository provides database operations for insights and predictions
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new insight repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun persists all rows of one engine run in a single transaction
func (r *Repository) SaveRun(ctx context.Context, run *Run) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_save_run", time.Since(start)) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	insightQuery := `
		INSERT INTO insights (id, patient_id, run_id, kind, label, recommendation, confidence, position, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, ins := range run.Insights {
		_, err := tx.ExecContext(ctx, insightQuery,
			ins.ID, ins.PatientID, ins.RunID, string(ins.Kind),
			ins.Label, ins.Recommendation, ins.Confidence, ins.Position, ins.GeneratedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save insight")
		}
	}

	predictionQuery := `
		INSERT INTO predictions (id, patient_id, run_id, condition_name, confidence, risk_level, position, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, p := range run.Predictions {
		_, err := tx.ExecContext(ctx, predictionQuery,
			p.ID, p.PatientID, p.RunID, p.Condition, p.Confidence, p.RiskLevel, p.Position, p.GeneratedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save prediction")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit run")
	}

	return nil
}

// ListByPatient returns a patient's insight history, newest first
func (r *Repository) ListByPatient(ctx context.Context, patientID types.ID) ([]Insight, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_list", time.Since(start)) }()

	query := `
		SELECT id, patient_id, run_id, kind, label, recommendation, confidence, position, generated_at
		FROM insights
		WHERE patient_id = ?
		ORDER BY generated_at DESC, position`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list insights")
	}
	defer rows.Close()

	return scanInsights(rows)
}

// LatestRun returns the most recent run for a patient, or NotFound when the
// patient has never been analyzed.
func (r *Repository) LatestRun(ctx context.Context, patientID types.ID) (*Run, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_latest_run", time.Since(start)) }()

	var runID types.ID
	var generatedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, generated_at
		FROM insights
		WHERE patient_id = ?
		ORDER BY generated_at DESC
		LIMIT 1`, patientID).Scan(&runID, &generatedAt)

	if err == sql.ErrNoRows {
		return nil, errors.NotFound("analysis run", patientID.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest run")
	}

	run := &Run{RunID: runID, PatientID: patientID, GeneratedAt: generatedAt}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, run_id, kind, label, recommendation, confidence, position, generated_at
		FROM insights
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load run insights")
	}
	defer rows.Close()

	run.Insights, err = scanInsights(rows)
	if err != nil {
		return nil, err
	}

	predRows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, run_id, condition_name, confidence, risk_level, position, generated_at
		FROM predictions
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load run predictions")
	}
	defer predRows.Close()

	for predRows.Next() {
		var p Prediction
		if err := predRows.Scan(&p.ID, &p.PatientID, &p.RunID, &p.Condition, &p.Confidence, &p.RiskLevel, &p.Position, &p.GeneratedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan prediction")
		}
		run.Predictions = append(run.Predictions, p)
	}
	if err := predRows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate predictions")
	}

	return run, nil
}

// Recent returns the newest insights across all patients, for the dashboard feed
func (r *Repository) Recent(ctx context.Context, limit int) ([]Insight, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_recent", time.Since(start)) }()

	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, run_id, kind, label, recommendation, confidence, position, generated_at
		FROM insights
		ORDER BY generated_at DESC, position
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent insights")
	}
	defer rows.Close()

	return scanInsights(rows)
}

// Stats summarizes stored insights for the dashboard
type Stats struct {
	TotalInsights int            `json:"total_insights"`
	TotalRuns     int            `json:"total_runs"`
	ByKind        map[string]int `json:"by_kind"`
}

// Summarize computes dashboard statistics over all stored insights
func (r *Repository) Summarize(ctx context.Context) (*Stats, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_summarize", time.Since(start)) }()

	stats := &Stats{ByKind: make(map[string]int)}

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT run_id) FROM insights`,
	).Scan(&stats.TotalInsights, &stats.TotalRuns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count insights")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM insights GROUP BY kind`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to group insights")
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan insight group")
		}
		stats.ByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate insight groups")
	}

	return stats, nil
}

// LatestRiskByPatient returns the newest risk insight per patient, keyed by
// patient ID. Used by the roster export.
func (r *Repository) LatestRiskByPatient(ctx context.Context) (map[types.ID]Insight, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insight_latest_risk", time.Since(start)) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT i.id, i.patient_id, i.run_id, i.kind, i.label, i.recommendation, i.confidence, i.position, i.generated_at
		FROM insights i
		JOIN (
			SELECT patient_id, MAX(generated_at) AS max_generated
			FROM insights
			WHERE kind = ?
			GROUP BY patient_id
		) latest ON i.patient_id = latest.patient_id AND i.generated_at = latest.max_generated
		WHERE i.kind = ?`, string(scoring.KindRisk), string(scoring.KindRisk))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load latest risk insights")
	}
	defer rows.Close()

	insights, err := scanInsights(rows)
	if err != nil {
		return nil, err
	}

	byPatient := make(map[types.ID]Insight, len(insights))
	for _, ins := range insights {
		byPatient[ins.PatientID] = ins
	}
	return byPatient, nil
}

func scanInsights(rows *sql.Rows) ([]Insight, error) {
	var insights []Insight
	for rows.Next() {
		var ins Insight
		var kind string
		if err := rows.Scan(&ins.ID, &ins.PatientID, &ins.RunID, &kind, &ins.Label, &ins.Recommendation, &ins.Confidence, &ins.Position, &ins.GeneratedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan insight")
		}
		ins.Kind = scoring.InsightKind(kind)
		insights = append(insights, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate insights")
	}
	return insights, nil
}
