package donation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	userdomain "physlib-backend/internal/domains/user"
	"physlib-backend/internal/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Record - POST /v1/admin/donations
func (h *Handler) Record(c *gin.Context) {
	var req CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid donation data", err)
		return
	}

	created, err := h.service.Record(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, "Donation amount must be a positive number")
		case errors.Is(err, userdomain.ErrUserNotFound):
			response.NotFound(c, "User not found")
		default:
			response.InternalServerError(c, "Internal server error")
		}
		return
	}
	response.Success(c, http.StatusCreated, created)
}

// ListMine - GET /v1/donations/mine
func (h *Handler) ListMine(c *gin.Context) {
	donations, total, err := h.service.ListByUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"donations": donations,
		"total":     total,
	})
}

// TopDonors - GET /v1/donors
func (h *Handler) TopDonors(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	donors, err := h.service.TopDonors(c.Request.Context(), limit)
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, donors)
}
