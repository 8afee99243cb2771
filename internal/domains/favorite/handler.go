package favorite

import (
	"errors"
	"net/http"

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

// Heart - PUT /v1/books/:id/heart
func (h *Handler) Heart(c *gin.Context) {
	err := h.service.Heart(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, bookmodel.ErrBookNotFound) {
			response.NotFound(c, "Book not found")
			return
		}
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hearted": true})
}

// Unheart - DELETE /v1/books/:id/heart
func (h *Handler) Unheart(c *gin.Context) {
	err := h.service.Unheart(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hearted": false})
}

// Status - GET /v1/books/:id/heart
func (h *Handler) Status(c *gin.Context) {
	hearted, count, err := h.service.Status(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"hearted":      hearted,
		"hearts_count": count,
	})
}

// ListMine - GET /v1/favorites
func (h *Handler) ListMine(c *gin.Context) {
	favorites, err := h.service.ListByUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.InternalServerError(c, "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, favorites)
}
