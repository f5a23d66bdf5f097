// Package dashboard renders the server-side HTML pages: the overview with
// summary figures and the category distribution chart, the patient roster,
// the registration form and the per-patient analysis view.
package dashboard

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mediclin/platform/internal/insight"
	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
	apperrors "github.com/mediclin/platform/internal/shared/errors"
	"github.com/mediclin/platform/internal/shared/metrics"
	"github.com/mediclin/platform/internal/shared/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handler renders the dashboard pages
type Handler struct {
	patients     *patient.Repository
	measurements *measurement.Repository
	insights     *insight.Repository
	service      *insight.Service
	log          *zap.Logger
	tmpl         *template.Template
}

// NewHandler parses the embedded templates and creates a dashboard handler
func NewHandler(
	patients *patient.Repository,
	measurements *measurement.Repository,
	insights *insight.Repository,
	service *insight.Service,
	log *zap.Logger,
) (*Handler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		patients:     patients,
		measurements: measurements,
		insights:     insights,
		service:      service,
		log:          log,
		tmpl:         tmpl,
	}, nil
}

// Routes registers the HTML routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Overview)
	r.Get("/patients", h.PatientList)
	r.Get("/patients/new", h.NewPatientForm)
	r.Post("/patients", h.CreatePatient)
	r.Get("/patients/{patientID}", h.PatientDetail)
	r.Post("/patients/{patientID}/analyze", h.RunAnalysis)
	r.Post("/patients/{patientID}/measurements", h.AddMeasurement)

	return r
}

// --- Overview ---

type kindSlice struct {
	Kind    string
	Count   int
	Percent int
}

type recentInsight struct {
	PatientName string
	PatientCode string
	PatientID   types.ID
	Kind        string
	Label       string
	Confidence  int
	GeneratedAt time.Time
}

type overviewData struct {
	TotalPatients int
	TotalRuns     int
	TotalInsights int
	Distribution  []kindSlice
	Recent        []recentInsight
}

func (h *Handler) overview(r *http.Request) (*overviewData, error) {
	totalPatients, err := h.patients.Count(r.Context())
	if err != nil {
		return nil, err
	}

	stats, err := h.insights.Summarize(r.Context())
	if err != nil {
		return nil, err
	}

	data := &overviewData{
		TotalPatients: totalPatients,
		TotalRuns:     stats.TotalRuns,
		TotalInsights: stats.TotalInsights,
	}

	for _, kind := range []string{"risk", "diagnostic", "preventive", "treatment"} {
		count := stats.ByKind[kind]
		percent := 0
		if stats.TotalInsights > 0 {
			percent = count * 100 / stats.TotalInsights
		}
		data.Distribution = append(data.Distribution, kindSlice{Kind: kind, Count: count, Percent: percent})
	}

	recent, err := h.insights.Recent(r.Context(), 8)
	if err != nil {
		return nil, err
	}

	// Resolve patient names for the feed. The roster of a local
	// single-clinician tool is small enough to map in one query.
	patients, err := h.patients.All(r.Context())
	if err != nil {
		return nil, err
	}
	byID := make(map[types.ID]patient.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	for _, ins := range recent {
		entry := recentInsight{
			PatientID:   ins.PatientID,
			Kind:        string(ins.Kind),
			Label:       ins.Label,
			Confidence:  ins.Confidence,
			GeneratedAt: ins.GeneratedAt,
		}
		if p, ok := byID[ins.PatientID]; ok {
			entry.PatientName = p.Name
			entry.PatientCode = p.Code
		}
		data.Recent = append(data.Recent, entry)
	}

	return data, nil
}

// Overview renders the dashboard landing page
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	data, err := h.overview(r)
	if err != nil {
		h.renderError(w, err)
		return
	}
	h.render(w, "overview.html", data)
}

// OverviewJSON serves the same figures as JSON for the API
func (h *Handler) OverviewJSON(w http.ResponseWriter, r *http.Request) {
	data, err := h.overview(r)
	if err != nil {
		status := http.StatusInternalServerError
		if appErr, ok := err.(*apperrors.AppError); ok {
			status = appErr.HTTPStatus
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total_patients": data.TotalPatients,
		"total_runs":     data.TotalRuns,
		"total_insights": data.TotalInsights,
		"distribution":   data.Distribution,
	})
}

// --- Patient pages ---

type patientListData struct {
	Patients []patient.Patient
	Total    int
	Search   string
}

// PatientList renders the patient roster
func (h *Handler) PatientList(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	patients, total, err := h.patients.List(r.Context(), patient.ListPatientsFilter{Search: search})
	if err != nil {
		h.renderError(w, err)
		return
	}

	h.render(w, "patients.html", patientListData{
		Patients: patients,
		Total:    total,
		Search:   search,
	})
}

type patientFormData struct {
	Name           string
	Age            string
	Sex            string
	MedicalHistory string
	Errors         map[string]string
}

// NewPatientForm renders the registration form
func (h *Handler) NewPatientForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "patient_form.html", patientFormData{Errors: map[string]string{}})
}

// CreatePatient handles the registration form post. Validation errors are
// re-rendered inline with the submitted values preserved; on success the
// patient is registered, analyzed immediately and shown.
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, apperrors.BadRequest("invalid form"))
		return
	}

	form := patientFormData{
		Name:           r.PostFormValue("name"),
		Age:            r.PostFormValue("age"),
		Sex:            r.PostFormValue("sex"),
		MedicalHistory: r.PostFormValue("medical_history"),
		Errors:         map[string]string{},
	}

	age, err := strconv.Atoi(form.Age)
	if err != nil {
		form.Errors["age"] = "age must be a number"
		h.render(w, "patient_form.html", form)
		return
	}

	p, err := patient.NewPatient(form.Name, age, patient.Sex(form.Sex), form.MedicalHistory)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Details != nil {
			form.Errors = appErr.Details
		} else {
			form.Errors["form"] = err.Error()
		}
		h.render(w, "patient_form.html", form)
		return
	}

	if err := h.patients.Save(r.Context(), p); err != nil {
		h.renderError(w, err)
		return
	}
	metrics.RecordPatientCreated()

	// Immediate analysis on registration, so the detail page opens with
	// a fresh run. A validation-only run is fine to ignore here.
	if _, err := h.service.Analyze(r.Context(), p.ID); err != nil {
		h.log.Warn("initial analysis failed", zap.String("patient_id", p.ID.String()), zap.Error(err))
	}

	http.Redirect(w, r, "/patients/"+p.ID.String(), http.StatusSeeOther)
}

type patientDetailData struct {
	Patient      *patient.Patient
	Measurements []measurement.Measurement
	Run          *insight.Run
	History      []insight.Insight
	Notice       string
	Kinds        []measurement.Kind
}

// PatientDetail renders one patient with measurements and the latest run
func (h *Handler) PatientDetail(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		h.renderError(w, apperrors.BadRequest("invalid patient ID"))
		return
	}

	p, err := h.patients.FindByID(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	measurements, err := h.measurements.ListByPatient(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := patientDetailData{
		Patient:      p,
		Measurements: measurements,
		Notice:       r.URL.Query().Get("notice"),
		Kinds: []measurement.Kind{
			measurement.KindSystolicBP,
			measurement.KindDiastolicBP,
			measurement.KindHeartRate,
			measurement.KindGlucose,
			measurement.KindBMI,
			measurement.KindCholesterol,
		},
	}

	run, err := h.insights.LatestRun(r.Context(), id)
	if err == nil {
		data.Run = run
	}

	history, err := h.insights.ListByPatient(r.Context(), id)
	if err == nil {
		data.History = history
	}

	h.render(w, "patient_detail.html", data)
}

// RunAnalysis handles the analyze button
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		h.renderError(w, apperrors.BadRequest("invalid patient ID"))
		return
	}

	run, err := h.service.Analyze(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	target := "/patients/" + id.String()
	if len(run.Insights) == 0 && len(run.Notices) > 0 {
		target += "?notice=" + url.QueryEscape(run.Notices[0])
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// AddMeasurement handles the measurement form on the detail page
func (h *Handler) AddMeasurement(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "patientID"))
	if err != nil {
		h.renderError(w, apperrors.BadRequest("invalid patient ID"))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderError(w, apperrors.BadRequest("invalid form"))
		return
	}

	value, err := strconv.ParseFloat(r.PostFormValue("value"), 64)
	if err != nil {
		http.Redirect(w, r, "/patients/"+id.String()+"?notice="+url.QueryEscape("measurement value must be a number"), http.StatusSeeOther)
		return
	}

	m, err := measurement.New(id, measurement.Kind(r.PostFormValue("kind")), value, r.PostFormValue("unit"), time.Time{})
	if err != nil {
		h.renderError(w, err)
		return
	}

	if err := h.measurements.Save(r.Context(), m); err != nil {
		h.renderError(w, err)
		return
	}
	metrics.RecordMeasurement(string(m.Kind))

	http.Redirect(w, r, "/patients/"+id.String(), http.StatusSeeOther)
}

// --- Rendering helpers ---

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	if appErr, ok := err.(*apperrors.AppError); ok {
		status = appErr.HTTPStatus
		message = appErr.Message
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if terr := h.tmpl.ExecuteTemplate(w, "error.html", map[string]any{"Message": message}); terr != nil {
		h.log.Error("error template render failed", zap.Error(terr))
	}
}
