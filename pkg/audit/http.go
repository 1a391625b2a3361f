package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

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
	r.HandleFunc("/logs", h.handleListLogs).Methods(http.MethodGet)
	r.HandleFunc("/verify-integrity", h.handleVerifyIntegrity).Methods(http.MethodGet)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	entries, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list audit logs")
		http.Error(w, "failed to list audit logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}

func (h *Handler) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.VerifyIntegrity(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to verify audit trail")
		http.Error(w, "failed to verify audit trail", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
