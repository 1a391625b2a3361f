package fda

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/gateway/middleware"
	"github.com/clinprot/regdocs/pkg/jobs"
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
	r.HandleFunc("/upload", h.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/status/{jobID}", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/documents", h.handleListDocuments).Methods(http.MethodGet)
	r.HandleFunc("/documents/{id}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/documents/{id}/create-trial", h.handleCreateTrial).Methods(http.MethodPost)
	r.HandleFunc("/forms/{id}", h.handleGetForms).Methods(http.MethodGet)
	r.HandleFunc("/forms/{id}", h.handleUpdateForm).Methods(http.MethodPut)
	r.HandleFunc("/forms/{id}/review", h.handleReview).Methods(http.MethodPost)
	r.HandleFunc("/forms/{id}/sign", h.handleSign).Methods(http.MethodPost)
}

// handleUpload accepts a multipart protocol document. The default mode
// streams NDJSON progress events; mode=poll returns a job id for the
// status endpoint; mode=sync blocks and returns the finished document.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}
	if len(content) == 0 {
		http.Error(w, "uploaded file is empty", http.StatusBadRequest)
		return
	}
	actor := middleware.Actor(r)

	switch r.URL.Query().Get("mode") {
	case "poll":
		jobID := uuid.New().String()
		h.service.StartUploadJob(jobID, header.Filename, content, actor)
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": jobID})
	case "sync":
		doc, err := h.service.ProcessUpload(r.Context(), header.Filename, content, actor, nil)
		if err != nil {
			writeError(w, err, "upload failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"document_id": doc.ID, "document": doc})
	default:
		stream := jobs.NewStreamWriter(w)
		doc, err := h.service.ProcessUpload(r.Context(), header.Filename, content, actor, stream.Log)
		if err != nil {
			logger.Log.WithError(err).Error("streaming upload failed")
			stream.Error(err.Error())
			return
		}
		stream.Result(map[string]interface{}{"document_id": doc.ID.String(), "status": doc.Status})
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]
	status, err := h.service.JobStatus(r.Context(), jobID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to read job status")
		http.Error(w, "failed to read job status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			since = parsed
		}
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	docs, err := h.service.ListDocuments(r.Context(), r.URL.Query().Get("filename"), since, limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list documents")
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": docs})
}

func (h *Handler) handleGetForms(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"fda_1571": doc.Form1571,
		"fda_1572": doc.Form1572,
	})
}

func (h *Handler) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var req models.UpdateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	doc, err := h.service.UpdateForm(r.Context(), id, req, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to update form")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	doc, err := h.service.Review(r.Context(), id, req.ReviewedBy, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to review document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	var req models.SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	doc, err := h.service.Sign(r.Context(), id, req.SignerName, req.SignerRole, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to sign document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document": doc})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id, middleware.Actor(r)); err != nil {
		writeError(w, err, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateTrial(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}
	trial, err := h.service.CreateTrial(r.Context(), id, middleware.Actor(r))
	if err != nil {
		writeError(w, err, "failed to create trial")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"trial_id": trial.TrialID, "trial": trial})
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
