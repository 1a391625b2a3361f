package trials

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{trialID}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{trialID}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/{trialID}/rules", h.handleRules).Methods(http.MethodGet)
	r.HandleFunc("/{trialID}/glossary", h.handleGlossary).Methods(http.MethodGet)
	r.HandleFunc("/{trialID}/criteria-status", h.handleCriteriaStatus).Methods(http.MethodGet)
	r.HandleFunc("/{trialID}/extract-criteria", h.handleExtractCriteria).Methods(http.MethodPost)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	trials, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeError(w, err, "failed to list trials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trials": trials, "count": len(trials)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	trial, err := h.service.Resolve(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		writeError(w, err, "failed to load trial")
		return
	}
	writeJSON(w, http.StatusOK, trial)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["trialID"], middleware.Actor(r)); err != nil {
		writeError(w, err, "failed to delete trial")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRules(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Rules(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		writeError(w, err, "failed to load eligibility rules")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleGlossary(w http.ResponseWriter, r *http.Request) {
	terms, err := h.service.Glossary(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		writeError(w, err, "failed to build glossary")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"terms": terms, "count": len(terms)})
}

func (h *Handler) handleCriteriaStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CriteriaStatus(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		writeError(w, err, "failed to load criteria status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleExtractCriteria(w http.ResponseWriter, r *http.Request) {
	trial, err := h.service.RequestExtraction(r.Context(), mux.Vars(r)["trialID"], middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to request criteria extraction")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"trial_id":        trial.TrialID,
		"analysis_status": trial.AnalysisStatus,
	})
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
