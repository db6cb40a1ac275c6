// Package api exposes the authentication service over HTTP/JSON. It only
// decodes requests, calls the service and maps its errors to status codes;
// all business rules live in the services package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/comfort-stereo/gatekeeper/internal/common"
	"github.com/comfort-stereo/gatekeeper/internal/logging"
	"github.com/comfort-stereo/gatekeeper/internal/server/models"
)

// Service is the slice of the auth service that the HTTP layer calls.
type Service interface {
	CreateUser(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Refresh(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
	VerifyEmail(ctx context.Context, userID, code string) (bool, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type Handler struct {
	service Service
	logger  logging.Logger
}

func NewHandler(service Service, logger logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Router builds the route table. Registered on a subrouter so the server
// can mount health checks next to it.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/users", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/users", h.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/verify-email", h.VerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/api/session", h.Session).Methods(http.MethodGet)
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/refresh", h.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", h.Logout).Methods(http.MethodPost)
	return r
}

// userResponse is the wire form of a user. The password hash never leaves
// the process.
type userResponse struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
		EmailVerifiedAt: u.EmailVerifiedAt,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	existed, err := h.service.Logout(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"existed": existed})
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	verified, err := h.service.VerifyEmail(r.Context(), mux.Vars(r)["id"], req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// Session resolves the bearer token from the Authorization header to the
// user it belongs to.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing authorization token"})
		return
	}

	user, err := h.service.Authenticate(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if username := r.URL.Query().Get("username"); username != "" {
		user, err := h.service.GetUserByUsername(r.Context(), username)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, toUserResponse(user))
		return
	}

	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	var status int
	switch {
	case errors.Is(err, common.ErrorUsernameTaken):
		status = http.StatusConflict
		resp.Field = "username"
	case errors.Is(err, common.ErrorEmailTaken):
		status = http.StatusConflict
		resp.Field = "email"
	case errors.Is(err, common.ErrorWeakPassword), errors.Is(err, common.ErrorInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorInvalidCredentials), errors.Is(err, common.ErrorInvalidSession):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, common.ErrorInternal):
		// Already logged where it happened.
		status = http.StatusInternalServerError
		resp.Error = "internal error"
	default:
		status = http.StatusInternalServerError
		resp.Error = "internal error"
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error(context.Background(), "response encoding failed", "error", err.Error())
	}
}
