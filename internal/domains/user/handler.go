package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"physlib-backend/internal/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register - POST /v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid registration data", err)
		return
	}

	auth, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, auth)
}

// Login - POST /v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid login data", err)
		return
	}

	auth, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, auth)
}

// CompleteSetup - POST /v1/auth/setup
func (h *Handler) CompleteSetup(c *gin.Context) {
	var req CompleteSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid setup data", err)
		return
	}

	auth, err := h.service.CompleteSetup(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, auth)
}

// Me - GET /v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	userID := c.GetString("userID")
	u, err := h.service.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// Invite - POST /v1/admin/users/invite
func (h *Handler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid invitation data", err)
		return
	}

	inviterID := c.GetString("userID")
	inviter, err := h.service.GetByID(c.Request.Context(), inviterID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	invited, err := h.service.Invite(c.Request.Context(), &req, inviterID, inviter.FullName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invited)
}

// List - GET /v1/admin/users
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, total, err := h.service.List(c.Request.Context(), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// UpdateRole - PUT /v1/admin/users/:id/role
func (h *Handler) UpdateRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid role", err)
		return
	}

	if err := h.service.UpdateRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(c, "User not found")
	case errors.Is(err, ErrEmailExists):
		response.Conflict(c, "Email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		response.Unauthorized(c, "Invalid email or password")
	case errors.Is(err, ErrAccountSuspended):
		response.Forbidden(c, "Account suspended")
	case errors.Is(err, ErrInvalidSetupToken):
		response.Unauthorized(c, "Invalid or expired setup token")
	case errors.Is(err, ErrAlreadyActivated):
		response.Conflict(c, "Account already activated")
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
