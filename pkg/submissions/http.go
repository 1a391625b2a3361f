package submissions

import (
	"encoding/json"
	"net/http"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/gateway/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/investigators", h.handleCreatePI).Methods(http.MethodPost)
	r.HandleFunc("/investigators", h.handleListPIs).Methods(http.MethodGet)
	r.HandleFunc("/trial/{trialID}", h.handleListByTrial).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{id}/approve-patient", h.handleApprovePatient).Methods(http.MethodPut)
	r.HandleFunc("/{id}/approve-all", h.handleApproveAll).Methods(http.MethodPut)
	r.HandleFunc("/{id}/approve-bulk", h.handleApproveBulk).Methods(http.MethodPut)
	r.HandleFunc("/{id}/review", h.handleAddComment).Methods(http.MethodPost)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	submittedBy := uuid.Nil
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		submittedBy = claims.UserID
	}
	sub, err := h.service.Create(r.Context(), req, submittedBy, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to create submission")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	sub, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to load submission")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleListByTrial(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListByTrial(r.Context(), mux.Vars(r)["trialID"])
	if err != nil {
		writeError(w, err, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs, "count": len(subs)})
}

func (h *Handler) handleApprovePatient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	var req models.ApprovePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := h.service.ApprovePatient(r.Context(), id, req, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to record patient decision")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	var req struct {
		Approved *bool  `json:"approved"`
		Comment  string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}
	sub, err := h.service.ApproveAll(r.Context(), id, approved, req.Comment, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to record decision")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleApproveBulk(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	var req models.BulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := h.service.ApproveBulk(r.Context(), id, req, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to record bulk approval")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid submission id", http.StatusBadRequest)
		return
	}
	var req models.ReviewCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	review, err := h.service.AddComment(r.Context(), id, req.Comment, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to add review comment")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleCreatePI(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pi, err := h.service.CreatePI(r.Context(), req, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to create principal investigator")
		return
	}
	writeJSON(w, http.StatusCreated, pi)
}

func (h *Handler) handleListPIs(w http.ResponseWriter, r *http.Request) {
	pis, err := h.service.ListPIs(r.Context())
	if err != nil {
		writeError(w, err, "failed to list principal investigators")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"investigators": pis, "count": len(pis)})
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
