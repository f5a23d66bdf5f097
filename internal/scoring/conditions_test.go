package scoring

import (
	"testing"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
)

// TestPredictConditionsRanking checks count, descending order and the
// catalog-order tiebreak.
func TestPredictConditionsRanking(t *testing.T) {
	// Young female with no measurements: every condition scores its base
	// except cardiovascular, which adds the sex term. All the rest tie and
	// must keep catalog order.
	predictions := predictConditions(Snapshot{Age: 20, Sex: patient.SexFemale})

	if len(predictions) != MaxPredictions {
		t.Fatalf("Expected %d predictions, got %d", MaxPredictions, len(predictions))
	}

	for i := 1; i < len(predictions); i++ {
		if predictions[i].Confidence > predictions[i-1].Confidence {
			t.Errorf("Predictions not sorted: %d before %d",
				predictions[i-1].Confidence, predictions[i].Confidence)
		}
	}

	if predictions[0].Condition != "Cardiovascular Disease" {
		t.Errorf("Expected Cardiovascular Disease first, got %s", predictions[0].Condition)
	}

	// The remaining three tie at the base score; catalog order breaks it.
	wantOrder := []string{"Hypertension", "Diabetes Type 2", "Respiratory Disease"}
	for i, want := range wantOrder {
		if predictions[i+1].Condition != want {
			t.Errorf("Expected %s at position %d, got %s", want, i+1, predictions[i+1].Condition)
		}
	}
}

// TestPredictionRiskLevels checks the High/Medium/Low thresholds
func TestPredictionRiskLevels(t *testing.T) {
	tests := []struct {
		confidence int
		level      string
	}{
		{100, RiskHigh},
		{71, RiskHigh},
		{70, RiskMedium},
		{41, RiskMedium},
		{40, RiskLow},
		{0, RiskLow},
	}

	for _, tt := range tests {
		if got := predictionRiskLevel(tt.confidence); got != tt.level {
			t.Errorf("Confidence %d: expected %s, got %s", tt.confidence, tt.level, got)
		}
	}
}

// TestHypertensionDominatesWithCrisisBP checks that severe blood pressure
// pushes hypertension to the top with a High risk level.
func TestHypertensionDominatesWithCrisisBP(t *testing.T) {
	predictions := predictConditions(Snapshot{
		Age: 70,
		Sex: patient.SexFemale,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP: 185,
		},
	})

	if predictions[0].Condition != "Hypertension" {
		t.Fatalf("Expected Hypertension first, got %s", predictions[0].Condition)
	}
	if predictions[0].RiskLevel != RiskHigh {
		t.Errorf("Expected risk level %s, got %s", RiskHigh, predictions[0].RiskLevel)
	}
}

// TestHistoryMentionsRaisesScore checks the free-text history term match
func TestHistoryMentionsRaisesScore(t *testing.T) {
	base := Snapshot{Age: 30, Sex: patient.SexFemale}
	withHistory := Snapshot{Age: 30, Sex: patient.SexFemale, MedicalHistory: "Former SMOKER, childhood asthma"}

	baseScore := scoreRespiratory(base)
	historyScore := scoreRespiratory(withHistory)

	if historyScore <= baseScore {
		t.Errorf("Expected respiratory history to raise score: base %d, with history %d",
			baseScore, historyScore)
	}
}

// TestConditionScoresNonNegativeContributions checks that adding any single
// measurement never lowers any condition score.
func TestConditionScoresNonNegativeContributions(t *testing.T) {
	base := Snapshot{Age: 55, Sex: patient.SexMale, Measurements: map[measurement.Kind]float64{}}

	additions := map[measurement.Kind]float64{
		measurement.KindSystolicBP:  150,
		measurement.KindDiastolicBP: 95,
		measurement.KindHeartRate:   105,
		measurement.KindGlucose:     130,
		measurement.KindBMI:         32,
		measurement.KindCholesterol: 250,
	}

	for _, c := range conditions {
		baseScore := c.score(base)
		for kind, value := range additions {
			augmented := Snapshot{
				Age: base.Age,
				Sex: base.Sex,
				Measurements: map[measurement.Kind]float64{
					kind: value,
				},
			}
			if got := c.score(augmented); got < baseScore {
				t.Errorf("%s: adding %s lowered score from %d to %d", c.name, kind, baseScore, got)
			}
		}
	}
}
