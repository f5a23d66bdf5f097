package insight

import (
	"time"

	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/types"
)

// Insight is one persisted engine output. Rows are immutable: a later run
// supersedes earlier ones by appending under a new run ID.
type Insight struct {
	ID             types.ID            `json:"id"`
	PatientID      types.ID            `json:"patient_id"`
	RunID          types.ID            `json:"run_id"`
	Kind           scoring.InsightKind `json:"kind"`
	Label          string              `json:"label"`
	Recommendation string              `json:"recommendation,omitempty"`
	Confidence     int                 `json:"confidence"`
	// Position preserves the engine's category order within a run.
	Position    int       `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Prediction is one persisted condition prediction
type Prediction struct {
	ID          types.ID  `json:"id"`
	PatientID   types.ID  `json:"patient_id"`
	RunID       types.ID  `json:"run_id"`
	Condition  string `json:"condition"`
	Confidence int    `json:"confidence"`
	RiskLevel  string `json:"risk_level"`
	// Position preserves the engine's ranking, including its tiebreaks.
	Position    int       `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Run groups the output of one engine invocation for one patient
type Run struct {
	RunID       types.ID     `json:"run_id"`
	PatientID   types.ID     `json:"patient_id"`
	Insights    []Insight    `json:"insights"`
	Predictions []Prediction `json:"predictions"`
	Notices     []string     `json:"notices,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewRun materializes an engine report into persistable rows
func NewRun(patientID types.ID, report scoring.Report) *Run {
	now := time.Now()
	run := &Run{
		RunID:       types.NewID(),
		PatientID:   patientID,
		Notices:     report.Notices,
		GeneratedAt: now,
	}

	for i, ins := range report.Insights {
		run.Insights = append(run.Insights, Insight{
			ID:             types.NewID(),
			PatientID:      patientID,
			RunID:          run.RunID,
			Kind:           ins.Kind,
			Label:          ins.Label,
			Recommendation: ins.Recommendation,
			Confidence:     ins.Confidence,
			Position:       i,
			GeneratedAt:    now,
		})
	}

	for i, p := range report.Predictions {
		run.Predictions = append(run.Predictions, Prediction{
			ID:          types.NewID(),
			PatientID:   patientID,
			RunID:       run.RunID,
			Condition:   p.Condition,
			Confidence:  p.Confidence,
			RiskLevel:   p.RiskLevel,
			Position:    i,
			GeneratedAt: now,
		})
	}

	return run
}
