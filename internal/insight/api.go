package insight

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/types"
)

// Handler serves scoring runs and stored insights. Routes are mounted under
// /patients/{patientID}.
type Handler struct {
	repo     *Repository
	patients *patient.Repository
	service  *Service
}

// NewHandler creates a new insight handler
func NewHandler(repo *Repository, patients *patient.Repository, service *Service) *Handler {
	return &Handler{repo: repo, patients: patients, service: service}
}

// Analyze runs the scoring engine against a patient's current snapshot and
// persists the resulting run. Earlier runs stay untouched.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	run, err := h.service.Analyze(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(run.Insights) == 0 {
		// Validation notices only; nothing was persisted.
		writeJSON(w, http.StatusUnprocessableEntity, run)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// ListInsights serves a patient's insight history; ?latest=true returns only
// the most recent run.
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	patientID, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid patient ID"))
		return
	}

	if _, err := h.patients.FindByID(r.Context(), patientID); err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("latest") == "true" {
		run, err := h.repo.LatestRun(r.Context(), patientID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	insights, err := h.repo.ListByPatient(r.Context(), patientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  insights,
		"total": len(insights),
	})
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
