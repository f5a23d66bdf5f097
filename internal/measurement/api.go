package measurement

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

// Handler provides HTTP handlers for measurements. Routes are mounted under
// /patients/{patientID}/measurements.
type Handler struct {
	repo     *Repository
	patients *patient.Repository
	log      *zap.Logger
}

// NewHandler creates a new measurement handler
func NewHandler(repo *Repository, patients *patient.Repository, log *zap.Logger) *Handler {
	return &Handler{repo: repo, patients: patients, log: log}
}

// Routes registers the measurement routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMeasurements)
	r.Post("/", h.RecordMeasurement)

	return r
}

// ListMeasurements lists a patient's measurement history
func (h *Handler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if _, err := h.patients.FindByID(r.Context(), patientID); err != nil {
		writeError(w, err)
		return
	}

	measurements, err := h.repo.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  measurements,
		"total": len(measurements),
	})
}

// RecordMeasurement appends a measurement to a patient's history
func (h *Handler) RecordMeasurement(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if _, err := h.patients.FindByID(r.Context(), patientID); err != nil {
		writeError(w, err)
		return
	}

	var req RecordMeasurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	recordedAt := time.Time{}
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	m, err := New(patientID, req.Kind, req.Value, req.Unit, recordedAt)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), m); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordMeasurement(string(m.Kind))
	h.log.Debug("measurement recorded",
		zap.String("patient_id", patientID.String()),
		zap.String("kind", string(m.Kind)),
	)

	writeJSON(w, http.StatusCreated, m)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		writeJSON(w, appErr.HTTPStatus, appErr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, errors.Internal(err))
}
