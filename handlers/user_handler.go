package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/docsmith/backend/middleware"
	"github.com/docsmith/backend/models"
	"github.com/docsmith/backend/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	NationalID  string    `json:"national_id,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// UserService defines the user operations the handlers depend on
type UserService interface {
	// CurrentUser returns the user record matching the given national ID
	CurrentUser(ctx context.Context, nationalID string) (*models.User, error)

	// ListUsers lists all registered users
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleCurrentUser handles GET /api/users/me
func (h *UserHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.users.CurrentUser(ctx, principal.NationalID)
	if err != nil {
		h.logger.Debug("current user lookup failed",
			zap.String("request_id", requestID),
			zap.String("username", principal.Username),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, userToResponse(user))
}

// HandleListUsers handles GET /api/users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		h.logger.Error("failed to list users",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]UserResponse, len(users))
	for i, u := range users {
		responses[i] = userToResponse(u)
	}

	h.logger.Debug("listed users",
		zap.String("request_id", requestID),
		zap.Int("count", len(responses)))

	_ = utils.WriteOK(w, responses)
}

func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		NationalID:  u.NationalID,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
