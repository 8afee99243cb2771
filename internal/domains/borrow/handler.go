package borrow

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	bookmodel "physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create - POST /v1/borrow-requests
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid borrow request", err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), c.GetString("userID"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// ListMine - GET /v1/borrow-requests/mine
func (h *Handler) ListMine(c *gin.Context) {
	requests, err := h.service.ListByUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, requests)
}

// ListByStatus - GET /v1/admin/borrow-requests?status=pending
func (h *Handler) ListByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", StatusPending)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	requests, total, err := h.service.ListByStatus(c.Request.Context(), status, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, requests, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Approve - POST /v1/admin/borrow-requests/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid approval data", err)
		return
	}

	err := h.service.Approve(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.DueDate)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"approved": true})
}

// Reject - POST /v1/admin/borrow-requests/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	err := h.service.Reject(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rejected": true})
}

// Return - POST /v1/admin/borrow-requests/:id/return
func (h *Handler) Return(c *gin.Context) {
	if err := h.service.Return(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"returned": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		response.NotFound(c, "Borrow request not found")
	case errors.Is(err, bookmodel.ErrBookNotFound):
		response.NotFound(c, "Book not found")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "Request is not in a state that allows this action")
	case errors.Is(err, ErrNoCopiesAvailable):
		response.Conflict(c, "No copies available")
	case errors.Is(err, ErrDuplicateRequest):
		response.Conflict(c, "You already have an open request for this book")
	case errors.Is(err, ErrPastDueDate):
		response.BadRequest(c, "Due date must be in the future")
	default:
		response.InternalServerError(c, "Internal server error")
	}
}
