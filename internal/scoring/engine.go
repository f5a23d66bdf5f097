// Package scoring implements the heuristic rules engine that turns a patient
// snapshot into typed insights and ranked condition predictions. The rules
// are deterministic threshold and weighted-sum heuristics over age, sex and
// the latest measurement values; this is explicitly not a trained model.
package scoring

import (
	"fmt"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
)

// InsightKind is the category of a generated insight
type InsightKind string

const (
	KindRisk       InsightKind = "risk"
	KindDiagnostic InsightKind = "diagnostic"
	KindPreventive InsightKind = "preventive"
	KindTreatment  InsightKind = "treatment"
)

// Kinds is the fixed category order of a report
var Kinds = []InsightKind{KindRisk, KindDiagnostic, KindPreventive, KindTreatment}

// Risk labels, from the risk score
const (
	LabelLow      = "low"
	LabelModerate = "moderate"
	LabelElevated = "elevated"
	LabelHigh     = "high"
)

// Snapshot is the engine input: the patient's demographics plus the latest
// value per measurement kind. Missing measurements are allowed and lower
// confidence; age and sex are required.
type Snapshot struct {
	Age            int
	Sex            patient.Sex
	MedicalHistory string
	Measurements   map[measurement.Kind]float64
}

// Insight is one scored, labeled engine output
type Insight struct {
	Kind           InsightKind `json:"kind"`
	Label          string      `json:"label"`
	Recommendation string      `json:"recommendation"`
	Confidence     int         `json:"confidence"`
}

// Prediction is a scored condition candidate
type Prediction struct {
	Condition  string `json:"condition"`
	Confidence int    `json:"confidence"`
	RiskLevel  string `json:"risk_level"`
}

// Report is the full engine output for one invocation
type Report struct {
	Insights    []Insight    `json:"insights"`
	Predictions []Prediction `json:"predictions"`
	Notices     []string     `json:"notices,omitempty"`
}

// Valid reports whether the engine produced insights
func (r Report) Valid() bool {
	return len(r.Insights) > 0
}

// Engine is the rules engine. It is stateless and safe for reuse.
type Engine struct{}

// NewEngine creates a scoring engine
func NewEngine() *Engine {
	return &Engine{}
}

// scoredKinds are the measurement kinds the rules consume. Anything else in
// the snapshot is ignored.
var scoredKinds = []measurement.Kind{
	measurement.KindSystolicBP,
	measurement.KindDiastolicBP,
	measurement.KindHeartRate,
	measurement.KindGlucose,
	measurement.KindBMI,
	measurement.KindCholesterol,
}

// Analyze maps a snapshot to a report. It has no side effects; persistence
// is the caller's responsibility. Identical input yields identical output.
func (e *Engine) Analyze(s Snapshot) Report {
	if notices := validateSnapshot(s); len(notices) > 0 {
		return Report{Notices: notices}
	}

	predictions := predictConditions(s)

	insights := []Insight{
		riskInsight(s),
		diagnosticInsight(s, predictions),
		preventiveInsight(s),
		treatmentInsight(s),
	}

	return Report{
		Insights:    insights,
		Predictions: predictions,
	}
}

func validateSnapshot(s Snapshot) []string {
	var notices []string
	if s.Age <= 0 || s.Age > patient.MaxAge {
		notices = append(notices, "patient age is required for scoring")
	}
	switch s.Sex {
	case patient.SexMale, patient.SexFemale, patient.SexOther:
	default:
		notices = append(notices, "patient sex is required for scoring")
	}
	return notices
}

// presentCount counts the scored measurement kinds present in the snapshot
func presentCount(s Snapshot) int {
	n := 0
	for _, k := range scoredKinds {
		if _, ok := s.Measurements[k]; ok {
			n++
		}
	}
	return n
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// riskScore is a weighted sum over age band, sex and measurement thresholds.
// Every measurement contribution is non-negative, so adding a measurement
// never lowers the score. Clamped to [0,100].
func riskScore(s Snapshot) int {
	score := 0

	switch {
	case s.Age >= 65:
		score += 40
	case s.Age >= 45:
		score += 25
	case s.Age >= 30:
		score += 15
	default:
		score += 5
	}

	if s.Sex == patient.SexMale {
		score += 10
	} else {
		score += 5
	}

	score += bloodPressurePoints(s)
	score += glucosePoints(s)
	score += bmiPoints(s)
	score += cholesterolPoints(s)

	return clamp(score)
}

func bloodPressurePoints(s Snapshot) int {
	sys, hasSys := s.Measurements[measurement.KindSystolicBP]
	dia, hasDia := s.Measurements[measurement.KindDiastolicBP]
	if !hasSys && !hasDia {
		return 0
	}

	switch {
	case (hasSys && sys >= 180) || (hasDia && dia >= 120):
		return 35
	case (hasSys && sys >= 160) || (hasDia && dia >= 100):
		return 30
	case (hasSys && sys >= 140) || (hasDia && dia >= 90):
		return 25
	case (hasSys && sys >= 130) || (hasDia && dia >= 85):
		return 15
	default:
		return 5
	}
}

func glucosePoints(s Snapshot) int {
	g, ok := s.Measurements[measurement.KindGlucose]
	if !ok {
		return 0
	}
	switch {
	case g >= 200:
		return 25
	case g >= 126:
		return 20
	case g >= 100:
		return 10
	default:
		return 2
	}
}

func bmiPoints(s Snapshot) int {
	b, ok := s.Measurements[measurement.KindBMI]
	if !ok {
		return 0
	}
	switch {
	case b >= 35:
		return 15
	case b >= 30:
		return 12
	case b >= 25:
		return 8
	default:
		return 2
	}
}

func cholesterolPoints(s Snapshot) int {
	c, ok := s.Measurements[measurement.KindCholesterol]
	if !ok {
		return 0
	}
	switch {
	case c >= 240:
		return 15
	case c >= 200:
		return 8
	default:
		return 2
	}
}

// riskLabel maps a risk score to its qualitative label
func riskLabel(score int) string {
	switch {
	case score >= 80:
		return LabelHigh
	case score >= 60:
		return LabelElevated
	case score >= 40:
		return LabelModerate
	default:
		return LabelLow
	}
}

func riskInsight(s Snapshot) Insight {
	score := riskScore(s)
	label := riskLabel(score)

	rec := "Routine follow-up at the next scheduled visit"
	switch label {
	case LabelHigh:
		rec = "Immediate clinical review and comprehensive cardiovascular screening"
	case LabelElevated:
		rec = "Regular cardiovascular screening and close monitoring of vitals"
	case LabelModerate:
		rec = "Annual screening and lifestyle review"
	}

	return Insight{
		Kind:           KindRisk,
		Label:          label,
		Recommendation: rec,
		Confidence:     score,
	}
}

func diagnosticInsight(s Snapshot, predictions []Prediction) Insight {
	// Predictions are never empty for a valid snapshot.
	top := predictions[0]

	return Insight{
		Kind:           KindDiagnostic,
		Label:          top.Condition,
		Recommendation: fmt.Sprintf("Evaluate for %s; risk level %s", top.Condition, top.RiskLevel),
		Confidence:     top.Confidence,
	}
}

func preventiveInsight(s Snapshot) Insight {
	// Confidence starts at the full-data value and drops a fixed step per
	// missing measurement, keeping it monotone in snapshot completeness.
	missing := len(scoredKinds) - presentCount(s)
	conf := clamp(90 - 4*missing)

	rec := "Annual physical exam and laboratory screening"
	if s.Age >= 65 {
		rec = "Annual physical exam, laboratory screening and bone density assessment"
	}

	return Insight{
		Kind:           KindPreventive,
		Label:          "comprehensive health assessment",
		Recommendation: rec,
		Confidence:     conf,
	}
}

// treatmentInsight targets the dominant modifiable factor, falling back to
// routine monitoring when nothing is out of range.
func treatmentInsight(s Snapshot) Insight {
	type factor struct {
		name   string
		points int
		rec    string
	}

	factors := []factor{
		{"blood pressure management", bloodPressurePoints(s), "Blood pressure management plan with regular home monitoring"},
		{"glycemic control", glucosePoints(s), "Glycemic control plan with dietary adjustment and HbA1c follow-up"},
		{"weight management", bmiPoints(s), "Weight management program with nutrition counseling"},
		{"lipid management", cholesterolPoints(s), "Lipid profile monitoring and dietary modification"},
	}

	best := factors[0]
	for _, f := range factors[1:] {
		if f.points > best.points {
			best = f
		}
	}

	conf := clamp(50 + 5*presentCount(s) + best.points/2)

	if best.points < 10 {
		return Insight{
			Kind:           KindTreatment,
			Label:          "routine monitoring",
			Recommendation: "No treatment adjustment indicated; continue routine monitoring",
			Confidence:     conf,
		}
	}

	return Insight{
		Kind:           KindTreatment,
		Label:          best.name,
		Recommendation: best.rec,
		Confidence:     conf,
	}
}
