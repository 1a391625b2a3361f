package insilico

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
	r.HandleFunc("/results/{trialID}", h.handleResults).Methods(http.MethodGet)
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Results(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		code := apperrors.Status(err)
		if code == http.StatusInternalServerError {
			logger.Log.WithError(err).Error("failed to load insilico results")
			http.Error(w, "failed to load insilico results", code)
			return
		}
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}
