package report

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mediclin/platform/internal/insight"
	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/shared/errors"
)

// Handler serves report downloads
type Handler struct {
	patients *patient.Repository
	insights *insight.Repository
	log      *zap.Logger
}

// NewHandler creates a new report handler
func NewHandler(patients *patient.Repository, insights *insight.Repository, log *zap.Logger) *Handler {
	return &Handler{patients: patients, insights: insights, log: log}
}

// Routes registers the report routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/patients.xlsx", h.PatientRoster)

	return r
}

// PatientRoster exports all patients with their latest risk insight
func (h *Handler) PatientRoster(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	risks, err := h.insights.LatestRiskByPatient(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GeneratePatientRoster(patients, risks)
	if err != nil {
		h.log.Error("roster export failed", zap.Error(err))
		writeError(w, errors.Internal(err))
		return
	}

	filename := fmt.Sprintf("patients-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(errors.Internal(err))
}
