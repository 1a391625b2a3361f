package screening

import (
	"encoding/json"
	"net/http"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/trial/{trialID}", h.handleTrial).Methods(http.MethodGet)
	r.HandleFunc("/patient/{trialID}/{patientID}", h.handlePatient).Methods(http.MethodGet)
}

func (h *Handler) handleTrial(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err, "invalid filter")
		return
	}
	analysis, err := h.service.TrialAnalysis(r.Context(), mux.Vars(r)["trialID"], filter)
	if err != nil {
		writeError(w, err, "failed to load trial screening analysis")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handlePatient(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.service.PatientAnalysis(r.Context(), vars["trialID"], vars["patientID"])
	if err != nil {
		writeError(w, err, "failed to load patient screening analysis")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	status := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error(fallback)
		http.Error(w, fallback, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
