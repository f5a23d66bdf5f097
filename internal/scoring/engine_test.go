package scoring

import (
	"reflect"
	"testing"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
)

func fullSnapshot() Snapshot {
	return Snapshot{
		Age: 45,
		Sex: patient.SexMale,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP:  140,
			measurement.KindDiastolicBP: 90,
			measurement.KindHeartRate:   72,
			measurement.KindGlucose:     110,
			measurement.KindBMI:         27,
			measurement.KindCholesterol: 210,
		},
	}
}

// TestAnalyzeProducesFourInsights checks that every valid snapshot yields
// exactly one insight per category, in fixed category order.
func TestAnalyzeProducesFourInsights(t *testing.T) {
	engine := NewEngine()

	snapshots := []Snapshot{
		fullSnapshot(),
		{Age: 30, Sex: patient.SexFemale},
		{Age: 80, Sex: patient.SexOther, Measurements: map[measurement.Kind]float64{
			measurement.KindGlucose: 250,
		}},
	}

	for _, s := range snapshots {
		report := engine.Analyze(s)

		if len(report.Insights) != len(Kinds) {
			t.Fatalf("Expected %d insights, got %d", len(Kinds), len(report.Insights))
		}
		for i, kind := range Kinds {
			if report.Insights[i].Kind != kind {
				t.Errorf("Expected insight %d to be %s, got %s", i, kind, report.Insights[i].Kind)
			}
		}
		if !report.Valid() {
			t.Error("Expected report to be valid")
		}
	}
}

// TestAnalyzeMiddleAgedMaleWithStage2BP checks the canonical scoring example:
// a 45-year-old male with blood pressure 140/90 lands at "elevated" with a
// risk confidence of at least 60.
func TestAnalyzeMiddleAgedMaleWithStage2BP(t *testing.T) {
	engine := NewEngine()

	report := engine.Analyze(Snapshot{
		Age: 45,
		Sex: patient.SexMale,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP:  140,
			measurement.KindDiastolicBP: 90,
		},
	})

	risk := report.Insights[0]
	if risk.Kind != KindRisk {
		t.Fatalf("Expected first insight to be risk, got %s", risk.Kind)
	}
	if risk.Label != LabelElevated {
		t.Errorf("Expected label %s, got %s", LabelElevated, risk.Label)
	}
	if risk.Confidence < 60 {
		t.Errorf("Expected confidence >= 60, got %d", risk.Confidence)
	}
}

// TestRiskLabels walks the label thresholds via representative snapshots
func TestRiskLabels(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		snapshot Snapshot
		label    string
	}{
		{
			"Young female, no measurements",
			Snapshot{Age: 20, Sex: patient.SexFemale},
			LabelLow,
		},
		{
			"Elderly female, no measurements",
			Snapshot{Age: 65, Sex: patient.SexFemale},
			LabelModerate,
		},
		{
			"Middle-aged male with stage 2 blood pressure",
			Snapshot{Age: 45, Sex: patient.SexMale, Measurements: map[measurement.Kind]float64{
				measurement.KindSystolicBP:  140,
				measurement.KindDiastolicBP: 90,
			}},
			LabelElevated,
		},
		{
			"Elderly male with crisis blood pressure and diabetic glucose",
			Snapshot{Age: 65, Sex: patient.SexMale, Measurements: map[measurement.Kind]float64{
				measurement.KindSystolicBP: 185,
				measurement.KindGlucose:    210,
			}},
			LabelHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Analyze(tt.snapshot)
			risk := report.Insights[0]
			if risk.Label != tt.label {
				t.Errorf("Expected label %s, got %s (confidence %d)", tt.label, risk.Label, risk.Confidence)
			}
		})
	}
}

// TestConfidenceClamped checks that confidences stay in [0,100] even when the
// raw weighted sum overshoots.
func TestConfidenceClamped(t *testing.T) {
	engine := NewEngine()

	// Raw risk sum here is 40+10+35+25 = 110.
	report := engine.Analyze(Snapshot{
		Age: 70,
		Sex: patient.SexMale,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP: 190,
			measurement.KindGlucose:    220,
		},
	})

	for _, ins := range report.Insights {
		if ins.Confidence < 0 || ins.Confidence > 100 {
			t.Errorf("Insight %s confidence %d out of range", ins.Kind, ins.Confidence)
		}
	}
	for _, pred := range report.Predictions {
		if pred.Confidence < 0 || pred.Confidence > 100 {
			t.Errorf("Prediction %s confidence %d out of range", pred.Condition, pred.Confidence)
		}
	}

	if report.Insights[0].Confidence != 100 {
		t.Errorf("Expected risk confidence clamped to 100, got %d", report.Insights[0].Confidence)
	}
}

// TestMissingMeasurementsLowerConfidence checks that removing any measurement
// from a snapshot never raises any confidence.
func TestMissingMeasurementsLowerConfidence(t *testing.T) {
	engine := NewEngine()
	full := fullSnapshot()
	fullReport := engine.Analyze(full)

	for kind := range full.Measurements {
		reduced := fullSnapshot()
		delete(reduced.Measurements, kind)
		report := engine.Analyze(reduced)

		for i, ins := range report.Insights {
			if ins.Confidence > fullReport.Insights[i].Confidence {
				t.Errorf("Removing %s raised %s confidence from %d to %d",
					kind, ins.Kind, fullReport.Insights[i].Confidence, ins.Confidence)
			}
		}
		if report.Predictions[0].Confidence > fullReport.Predictions[0].Confidence {
			t.Errorf("Removing %s raised top prediction confidence from %d to %d",
				kind, fullReport.Predictions[0].Confidence, report.Predictions[0].Confidence)
		}
	}
}

// TestAnalyzeDeterministic checks that identical input yields identical output
func TestAnalyzeDeterministic(t *testing.T) {
	engine := NewEngine()
	s := fullSnapshot()
	s.MedicalHistory = "hypertension, smoker"

	first := engine.Analyze(s)
	for i := 0; i < 10; i++ {
		again := engine.Analyze(s)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Run %d differed from first run", i+1)
		}
	}
}

// TestAnalyzeValidation checks that incomplete demographics yield notices and
// no insights.
func TestAnalyzeValidation(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		snapshot Snapshot
		notices  int
	}{
		{"Missing age", Snapshot{Sex: patient.SexFemale}, 1},
		{"Age over bound", Snapshot{Age: 131, Sex: patient.SexMale}, 1},
		{"Missing sex", Snapshot{Age: 40}, 1},
		{"Missing both", Snapshot{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Analyze(tt.snapshot)

			if report.Valid() {
				t.Error("Expected invalid report")
			}
			if len(report.Insights) != 0 {
				t.Errorf("Expected no insights, got %d", len(report.Insights))
			}
			if len(report.Predictions) != 0 {
				t.Errorf("Expected no predictions, got %d", len(report.Predictions))
			}
			if len(report.Notices) != tt.notices {
				t.Errorf("Expected %d notices, got %d: %v", tt.notices, len(report.Notices), report.Notices)
			}
		})
	}
}

// TestTreatmentInsightTargeting checks that the treatment insight picks the
// dominant out-of-range factor and falls back to routine monitoring when
// everything is in range.
func TestTreatmentInsightTargeting(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		snapshot Snapshot
		label    string
	}{
		{
			"Diabetic glucose dominates",
			Snapshot{Age: 50, Sex: patient.SexFemale, Measurements: map[measurement.Kind]float64{
				measurement.KindGlucose: 210,
			}},
			"glycemic control",
		},
		{
			"Hypertensive blood pressure dominates",
			Snapshot{Age: 50, Sex: patient.SexFemale, Measurements: map[measurement.Kind]float64{
				measurement.KindSystolicBP: 165,
				measurement.KindGlucose:    95,
			}},
			"blood pressure management",
		},
		{
			"Everything in range falls back",
			Snapshot{Age: 35, Sex: patient.SexMale, Measurements: map[measurement.Kind]float64{
				measurement.KindSystolicBP:  118,
				measurement.KindDiastolicBP: 76,
				measurement.KindHeartRate:   64,
				measurement.KindGlucose:     88,
				measurement.KindBMI:         23,
				measurement.KindCholesterol: 170,
			}},
			"routine monitoring",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := engine.Analyze(tt.snapshot)
			treatment := report.Insights[3]
			if treatment.Kind != KindTreatment {
				t.Fatalf("Expected treatment insight, got %s", treatment.Kind)
			}
			if treatment.Label != tt.label {
				t.Errorf("Expected label %q, got %q", tt.label, treatment.Label)
			}
		})
	}
}

// TestPreventiveConfidenceBySnapshotCompleteness pins the preventive
// confidence for full and empty snapshots.
func TestPreventiveConfidenceBySnapshotCompleteness(t *testing.T) {
	engine := NewEngine()

	full := engine.Analyze(fullSnapshot()).Insights[2]
	if full.Confidence != 90 {
		t.Errorf("Expected full-snapshot preventive confidence 90, got %d", full.Confidence)
	}

	empty := engine.Analyze(Snapshot{Age: 45, Sex: patient.SexMale}).Insights[2]
	if empty.Confidence != 66 {
		t.Errorf("Expected empty-snapshot preventive confidence 66, got %d", empty.Confidence)
	}
}

// TestDiagnosticInsightMatchesTopPrediction checks the diagnostic insight is
// derived from the highest-ranked condition.
func TestDiagnosticInsightMatchesTopPrediction(t *testing.T) {
	engine := NewEngine()

	report := engine.Analyze(fullSnapshot())
	diagnostic := report.Insights[1]

	if diagnostic.Label != report.Predictions[0].Condition {
		t.Errorf("Expected diagnostic label %q, got %q", report.Predictions[0].Condition, diagnostic.Label)
	}
	if diagnostic.Confidence != report.Predictions[0].Confidence {
		t.Errorf("Expected diagnostic confidence %d, got %d", report.Predictions[0].Confidence, diagnostic.Confidence)
	}
}
