package scoring

import (
	"sort"
	"strings"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
)

// Condition prediction risk levels
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// MaxPredictions is the number of ranked conditions returned per run
const MaxPredictions = 4

// conditionRule scores one condition from a snapshot. Contributions from
// measurements must be non-negative so a fuller snapshot never scores lower.
type conditionRule struct {
	name  string
	score func(s Snapshot) int
}

// conditions is the fixed condition catalog; list order is the tiebreak for
// equal confidences.
var conditions = []conditionRule{
	{"Hypertension", scoreHypertension},
	{"Diabetes Type 2", scoreDiabetes},
	{"Cardiovascular Disease", scoreCardiovascular},
	{"Respiratory Disease", scoreRespiratory},
	{"Neurological Disorder", scoreNeurological},
	{"Metabolic Disorder", scoreMetabolic},
}

// predictConditions ranks the condition catalog for a snapshot: descending
// confidence, ties broken by catalog order, top MaxPredictions returned.
func predictConditions(s Snapshot) []Prediction {
	predictions := make([]Prediction, 0, len(conditions))
	for _, c := range conditions {
		conf := clamp(c.score(s))
		predictions = append(predictions, Prediction{
			Condition:  c.name,
			Confidence: conf,
			RiskLevel:  predictionRiskLevel(conf),
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})

	return predictions[:MaxPredictions]
}

func predictionRiskLevel(confidence int) string {
	switch {
	case confidence > 70:
		return RiskHigh
	case confidence > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// historyMentions reports whether the free-text medical history names any of
// the given terms, case-insensitively.
func historyMentions(s Snapshot, terms ...string) bool {
	history := strings.ToLower(s.MedicalHistory)
	for _, term := range terms {
		if strings.Contains(history, term) {
			return true
		}
	}
	return false
}

func scoreHypertension(s Snapshot) int {
	score := 5

	switch {
	case s.Age >= 65:
		score += 20
	case s.Age >= 45:
		score += 12
	case s.Age >= 30:
		score += 6
	}

	switch bp := bloodPressurePoints(s); {
	case bp >= 30:
		score += 55
	case bp >= 25:
		score += 45
	case bp >= 15:
		score += 30
	case bp > 0:
		score += 5
	}

	if b, ok := s.Measurements[measurement.KindBMI]; ok && b >= 30 {
		score += 10
	}
	if historyMentions(s, "hypertension", "high blood pressure") {
		score += 15
	}

	return score
}

func scoreDiabetes(s Snapshot) int {
	score := 5

	if g, ok := s.Measurements[measurement.KindGlucose]; ok {
		switch {
		case g >= 200:
			score += 50
		case g >= 126:
			score += 40
		case g >= 100:
			score += 20
		}
	}
	if b, ok := s.Measurements[measurement.KindBMI]; ok {
		switch {
		case b >= 30:
			score += 15
		case b >= 25:
			score += 8
		}
	}
	if s.Age >= 45 {
		score += 10
	}
	if historyMentions(s, "diabetes", "prediabetes") {
		score += 15
	}

	return score
}

func scoreCardiovascular(s Snapshot) int {
	score := 5

	switch {
	case s.Age >= 65:
		score += 25
	case s.Age >= 45:
		score += 15
	}

	if s.Sex == patient.SexMale {
		score += 10
	} else {
		score += 5
	}

	if c, ok := s.Measurements[measurement.KindCholesterol]; ok {
		switch {
		case c >= 240:
			score += 20
		case c >= 200:
			score += 10
		}
	}
	if sys, ok := s.Measurements[measurement.KindSystolicBP]; ok && sys >= 140 {
		score += 15
	}
	if historyMentions(s, "heart", "cardiac", "cardiovascular") {
		score += 15
	}

	return score
}

func scoreRespiratory(s Snapshot) int {
	score := 5

	if hr, ok := s.Measurements[measurement.KindHeartRate]; ok && hr >= 100 {
		score += 10
	}
	if s.Age >= 65 {
		score += 10
	}
	if historyMentions(s, "asthma", "copd", "respiratory", "smok") {
		score += 30
	}

	return score
}

func scoreNeurological(s Snapshot) int {
	score := 5

	switch {
	case s.Age >= 75:
		score += 20
	case s.Age >= 65:
		score += 10
	}

	if sys, ok := s.Measurements[measurement.KindSystolicBP]; ok && sys >= 160 {
		score += 10
	}
	if historyMentions(s, "stroke", "seizure", "neuro", "migraine") {
		score += 30
	}

	return score
}

func scoreMetabolic(s Snapshot) int {
	score := 5

	if b, ok := s.Measurements[measurement.KindBMI]; ok {
		switch {
		case b >= 35:
			score += 25
		case b >= 30:
			score += 15
		}
	}
	if g, ok := s.Measurements[measurement.KindGlucose]; ok && g >= 100 {
		score += 15
	}
	if c, ok := s.Measurements[measurement.KindCholesterol]; ok && c >= 200 {
		score += 10
	}
	if historyMentions(s, "thyroid", "metabolic") {
		score += 20
	}

	return score
}
