package insight

import (
	"testing"

	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/types"
)

// TestNewRun tests materializing an engine report into persistable rows
func TestNewRun(t *testing.T) {
	patientID := types.NewID()

	report := scoring.Report{
		Insights: []scoring.Insight{
			{Kind: scoring.KindRisk, Label: "elevated", Recommendation: "screen", Confidence: 60},
			{Kind: scoring.KindDiagnostic, Label: "Hypertension", Recommendation: "evaluate", Confidence: 72},
		},
		Predictions: []scoring.Prediction{
			{Condition: "Hypertension", Confidence: 72, RiskLevel: "High"},
		},
	}

	run := NewRun(patientID, report)

	if run.RunID.IsZero() {
		t.Error("Expected non-zero run ID")
	}
	if run.PatientID != patientID {
		t.Errorf("Expected patient ID %s, got %s", patientID, run.PatientID)
	}
	if len(run.Insights) != 2 {
		t.Fatalf("Expected 2 insights, got %d", len(run.Insights))
	}
	if len(run.Predictions) != 1 {
		t.Fatalf("Expected 1 prediction, got %d", len(run.Predictions))
	}

	for _, ins := range run.Insights {
		if ins.ID.IsZero() {
			t.Error("Expected non-zero insight ID")
		}
		if ins.RunID != run.RunID {
			t.Error("Expected insight to carry the run ID")
		}
		if ins.PatientID != patientID {
			t.Error("Expected insight to carry the patient ID")
		}
		if !ins.GeneratedAt.Equal(run.GeneratedAt) {
			t.Error("Expected all rows to share the run timestamp")
		}
	}
	for _, p := range run.Predictions {
		if p.RunID != run.RunID || p.PatientID != patientID {
			t.Error("Expected prediction to carry run and patient IDs")
		}
		if !p.GeneratedAt.Equal(run.GeneratedAt) {
			t.Error("Expected all rows to share the run timestamp")
		}
	}
}

// TestNewRunInvalidReport tests that notices pass through unpersistable runs
func TestNewRunInvalidReport(t *testing.T) {
	report := scoring.Report{Notices: []string{"patient age is required for scoring"}}

	run := NewRun(types.NewID(), report)

	if len(run.Insights) != 0 {
		t.Errorf("Expected no insights, got %d", len(run.Insights))
	}
	if len(run.Notices) != 1 {
		t.Errorf("Expected 1 notice, got %d", len(run.Notices))
	}
}
