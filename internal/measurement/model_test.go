package measurement

import (
	"testing"
	"time"

	"github.com/mediclin/platform/internal/shared/types"
)

// TestNewMeasurement tests recording a measurement
func TestNewMeasurement(t *testing.T) {
	patientID := types.NewID()
	recordedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	m, err := New(patientID, KindSystolicBP, 140, "mmHg", recordedAt)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if m.ID.IsZero() {
		t.Error("Expected non-zero ID")
	}
	if m.PatientID != patientID {
		t.Errorf("Expected patient ID %s, got %s", patientID, m.PatientID)
	}
	if m.Kind != KindSystolicBP {
		t.Errorf("Expected kind %s, got %s", KindSystolicBP, m.Kind)
	}
	if m.Value != 140 {
		t.Errorf("Expected value 140, got %v", m.Value)
	}
	if !m.RecordedAt.Equal(recordedAt) {
		t.Errorf("Expected recorded at %v, got %v", recordedAt, m.RecordedAt)
	}
}

// TestNewMeasurementDefaultsRecordedAt tests the timestamp default
func TestNewMeasurementDefaultsRecordedAt(t *testing.T) {
	m, err := New(types.NewID(), KindGlucose, 95, "mg/dL", time.Time{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if m.RecordedAt.IsZero() {
		t.Error("Expected recorded time to default to now")
	}
}

// TestNewMeasurementValidation tests validation when recording
func TestNewMeasurementValidation(t *testing.T) {
	if _, err := New(types.ID(""), KindGlucose, 95, "", time.Time{}); err == nil {
		t.Error("Expected error for missing patient")
	}
	if _, err := New(types.NewID(), Kind(""), 95, "", time.Time{}); err == nil {
		t.Error("Expected error for missing kind")
	}
}
