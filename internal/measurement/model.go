package measurement

import (
	"time"

	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/types"
)

// Kind names a clinical observation. The scoring engine understands the
// kinds below; unknown kinds are stored but not scored.
type Kind string

const (
	KindSystolicBP  Kind = "systolic_bp"
	KindDiastolicBP Kind = "diastolic_bp"
	KindHeartRate   Kind = "heart_rate"
	KindGlucose     Kind = "glucose"
	KindBMI         Kind = "bmi"
	KindCholesterol Kind = "cholesterol"
)

// Measurement is one clinical observation for a patient. The history is
// append-only; corrections are recorded as new rows.
type Measurement struct {
	ID         types.ID  `json:"id"`
	PatientID  types.ID  `json:"patient_id"`
	Kind       Kind      `json:"kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// New creates a measurement for a patient
func New(patientID types.ID, kind Kind, value float64, unit string, recordedAt time.Time) (*Measurement, error) {
	if patientID.IsZero() {
		return nil, errors.BadRequest("patient is required")
	}
	if kind == "" {
		return nil, errors.Validation("invalid measurement", map[string]string{"kind": "kind is required"})
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	return &Measurement{
		ID:         types.NewID(),
		PatientID:  patientID,
		Kind:       kind,
		Value:      value,
		Unit:       unit,
		RecordedAt: recordedAt,
	}, nil
}

// --- Request/Response types ---

type RecordMeasurementRequest struct {
	Kind       Kind       `json:"kind"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}
