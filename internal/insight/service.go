package insight

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/config"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

// Service assembles a patient snapshot, runs the scoring engine and persists
// the resulting run. It is shared by the JSON API and the HTML dashboard.
type Service struct {
	repo         *Repository
	patients     *patient.Repository
	measurements *measurement.Repository
	engine       *scoring.Engine
	cfg          config.ScoringConfig
	log          *zap.Logger
}

// NewService creates an insight service
func NewService(
	repo *Repository,
	patients *patient.Repository,
	measurements *measurement.Repository,
	engine *scoring.Engine,
	cfg config.ScoringConfig,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:         repo,
		patients:     patients,
		measurements: measurements,
		engine:       engine,
		cfg:          cfg,
		log:          log,
	}
}

// Analyze runs the engine for one patient. A run with no insights carries the
// engine's validation notices and is not persisted.
func (s *Service) Analyze(ctx context.Context, patientID types.ID) (*Run, error) {
	p, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	since := time.Time{}
	if s.cfg.MeasurementWindowDays > 0 {
		since = time.Now().AddDate(0, 0, -s.cfg.MeasurementWindowDays)
	}

	latest, err := s.measurements.LatestByPatient(ctx, patientID, since)
	if err != nil {
		return nil, err
	}

	snapshot := scoring.Snapshot{
		Age:            p.Age,
		Sex:            p.Sex,
		MedicalHistory: p.MedicalHistory,
		Measurements:   latest,
	}

	start := time.Now()
	report := s.engine.Analyze(snapshot)
	elapsed := time.Since(start)

	run := NewRun(patientID, report)

	if !report.Valid() {
		metrics.RecordAnalysis("invalid", elapsed)
		return run, nil
	}

	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	metrics.RecordAnalysis("ok", elapsed)
	for _, ins := range run.Insights {
		metrics.RecordInsight(string(ins.Kind))
	}
	s.log.Info("analysis run completed",
		zap.String("patient_id", patientID.String()),
		zap.String("run_id", run.RunID.String()),
		zap.Int("insights", len(run.Insights)),
	)

	return run, nil
}
