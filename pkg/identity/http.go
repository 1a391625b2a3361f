package identity

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/gateway/auth"
	"github.com/clinprot/regdocs/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
	tokens  *auth.JWTManager
	oidc    *auth.OIDCAuthenticator
}

func NewHandler(service *Service, tokens *auth.JWTManager, oidc *auth.OIDCAuthenticator) *Handler {
	return &Handler{service: service, tokens: tokens, oidc: oidc}
}

// RegisterPublic mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublic(r *mux.Router) {
	r.HandleFunc("/bootstrap", h.handleBootstrap).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
	if h.oidc != nil {
		r.HandleFunc("/oidc/login", h.handleOIDCLogin).Methods(http.MethodGet)
		r.HandleFunc("/oidc/callback", h.handleOIDCCallback).Methods(http.MethodGet)
	}
}

// RegisterProtected mounts the endpoints that require authentication.
func (h *Handler) RegisterProtected(r *mux.Router) {
	r.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req models.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.service.Bootstrap(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrBootstrapNotAllowed) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err, "bootstrap failed")
		return
	}
	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeError(w, err, "login failed")
		return
	}
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	var req models.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	user, err := h.service.Register(r.Context(), claims.Role, req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeError(w, err, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleOIDCLogin redirects the browser to the configured identity
// provider.
func (h *Handler) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		state = "regdocs"
	}
	http.Redirect(w, r, h.oidc.AuthCodeURL(state), http.StatusFound)
}

// handleOIDCCallback finishes the authorization-code flow: exchange the
// code, map the ID token's email to a provisioned account, and issue a
// local token.
func (h *Handler) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}
	token, err := h.oidc.Exchange(r.Context(), code)
	if err != nil {
		http.Error(w, "identity provider rejected the authorization code", http.StatusUnauthorized)
		return
	}
	identity, err := h.oidc.Identity(token)
	if err != nil {
		logger.Log.WithError(err).Warn("unusable OIDC token response")
		http.Error(w, "identity provider returned an unusable token", http.StatusUnauthorized)
		return
	}
	user, err := h.service.AuthenticateSSO(r.Context(), identity.Email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "no account provisioned for "+identity.Email, http.StatusForbidden)
			return
		}
		writeError(w, err, "SSO login failed")
		return
	}
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := h.tokens.IssueToken(user)
	if err != nil {
		writeError(w, err, "failed to issue token")
		return
	}
	writeJSON(w, status, models.AuthResponse{Token: token, User: user})
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
