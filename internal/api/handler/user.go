// internal/api/handler/user.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"talos-store/internal/api/types"
	"talos-store/internal/domain"
	"talos-store/internal/service"
	"talos-store/internal/util" // For custom errors
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserHandler handles HTTP requests related to users.
type UserHandler struct {
	service service.UserService
	pinger  Pinger
	logger  *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc service.UserService, pinger Pinger, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service: svc,
		pinger:  pinger,
		logger:  logger,
	}
}

// Helper function to send JSON responses.
func (h *UserHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *UserHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error() // Use the error message directly for invalid input
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = "user not found"
	case util.IsError(err, util.ErrDuplicateEntry):
		statusCode = http.StatusConflict
		message = "user name already taken"
	case util.IsError(err, util.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		message = "user name or password is incorrect"
	case util.IsError(err, util.ErrUnavailable):
		statusCode = http.StatusServiceUnavailable
		message = "Database connection failed"
		h.logger.Error("Storage unavailable", "error", err)
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, types.Fail(message))
}

// CredentialsRequest carries a user name and password.
type CredentialsRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// UserNameRequest carries a user name.
type UserNameRequest struct {
	UserName string `json:"user_name"`
}

// Register handles user sign-up.
// POST /register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.logger.Info("User registered", "user_id", user.ID, "user_name", user.UserName)
	h.respondWithJSON(w, http.StatusOK, types.OK("User register success", user))
}

// Login checks credentials and returns the user.
// POST /login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	user, err := h.service.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("User login success", user))
}

// UserExist reports whether a user name is taken.
// POST /user_exist
func (h *UserHandler) UserExist(w http.ResponseWriter, r *http.Request) {
	var req UserNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	exists, err := h.service.UserExists(r.Context(), req.UserName)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	message := "User not exists"
	if exists {
		message = "User exists"
	}
	h.respondWithJSON(w, http.StatusOK, types.OK(message, exists))
}

// ResetPassword replaces a user's password.
// POST /reset_password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.UserName, req.Password); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("password reset success", true))
}

// ListUsers returns every user.
// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("ok", types.NewListResponse(users)))
}

// GetUser returns one user.
// GET /users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("ok", user))
}

// UpdateUser overwrites a user's profile.
// PUT /users/{userID}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("User update success", user))
}

// DeleteUser removes a user.
// DELETE /users/{userID}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("User delete success", true))
}

// Hello is a liveness greeting.
// GET /hello
func (h *UserHandler) Hello(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, types.OK("Hello world!", true))
}

// Health reports whether the store answers.
// GET /health
func (h *UserHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", "error", err)
		h.respondWithJSON(w, http.StatusServiceUnavailable, types.Fail("Database connection failed"))
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.OK("OK", true))
}
