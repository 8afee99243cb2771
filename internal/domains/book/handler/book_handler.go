package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/book/service"
	"physlib-backend/internal/domains/upload"
	"physlib-backend/internal/shared/response"
)

// Handler serves the catalog HTTP surface.
type Handler struct {
	bookService *service.BookService
	coordinator *service.SaveCoordinator
	sessions    *upload.Registry
}

func NewHandler(bookService *service.BookService, coordinator *service.SaveCoordinator, sessions *upload.Registry) *Handler {
	return &Handler{
		bookService: bookService,
		coordinator: coordinator,
		sessions:    sessions,
	}
}

// ListBooks - GET /v1/books
func (h *Handler) ListBooks(c *gin.Context) {
	filter := &model.BookFilter{
		Search:     c.Query("search"),
		CategoryID: c.Query("category"),
		Language:   c.Query("language"),
		Status:     c.Query("status"),
		Sort:       c.Query("sort"),
		Page:       1,
		Limit:      20,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			filter.Limit = l
		}
	}
	if activeStr := c.Query("is_active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filter.IsActive = &active
		}
	}

	books, total, err := h.bookService.List(c.Request.Context(), filter)
	if err != nil {
		model.HandleBookError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, books, &response.Meta{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}

// GetBook - GET /v1/books/:id
func (h *Handler) GetBook(c *gin.Context) {
	detail, err := h.bookService.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// GetBookBySlug - GET /v1/books/slug/:slug
func (h *Handler) GetBookBySlug(c *gin.Context) {
	detail, err := h.bookService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// ListPopular - GET /v1/books/popular
func (h *Handler) ListPopular(c *gin.Context) {
	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	items, err := h.bookService.ListMostViewed(c.Request.Context(), limit)
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// CreateBook - POST /v1/books
func (h *Handler) CreateBook(c *gin.Context) {
	var req model.BookDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid book data", err)
		return
	}

	book, err := h.bookService.Create(c.Request.Context(), req.ToDraft())
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, book)
}

// SaveBook - POST /v1/books/:id/save
//
// Folds the edit session into persistent state: ready staged images are
// relocated and recorded, the book row is updated, and category links
// are replaced. Refused while uploads are still in flight.
func (h *Handler) SaveBook(c *gin.Context) {
	bookID := c.Param("id")

	var req model.SaveBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid book data", err)
		return
	}

	var session *upload.Session
	var readyImages []upload.StagedImage
	if req.SessionID != "" {
		var err error
		session, err = h.sessions.Get(req.SessionID)
		if err != nil {
			response.NotFound(c, "Upload session not found")
			return
		}
		if session.BookID != bookID {
			response.BadRequest(c, "Upload session belongs to a different book")
			return
		}
		if session.Uploading() {
			model.HandleBookError(c, model.ErrUploadsInFlight)
			return
		}
		readyImages = session.Finalize()
	}

	result, err := h.coordinator.Save(c.Request.Context(), bookID, req.ToDraft(), readyImages, req.CategoryIDs)
	if err != nil {
		model.HandleBookError(c, err)
		return
	}

	if session != nil {
		session.MarkRelocated(result.RelocatedIDs)
		// Sweeps whatever was staged but not relocated.
		_ = h.sessions.Close(c.Request.Context(), req.SessionID)
	}

	response.Success(c, http.StatusOK, result)
}

// DeleteBook - DELETE /v1/books/:id
func (h *Handler) DeleteBook(c *gin.Context) {
	if err := h.bookService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// SetCover - PUT /v1/books/:id/images/:imageId/cover
func (h *Handler) SetCover(c *gin.Context) {
	err := h.bookService.SetExistingCover(c.Request.Context(), c.Param("id"), c.Param("imageId"))
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cover_set": true})
}

// DeleteImage - DELETE /v1/books/:id/images/:imageId
func (h *Handler) DeleteImage(c *gin.Context) {
	err := h.bookService.DeleteImage(c.Request.Context(), c.Param("id"), c.Param("imageId"))
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// UpdateImageAltText - PUT /v1/books/:id/images/:imageId/alt-text
func (h *Handler) UpdateImageAltText(c *gin.Context) {
	var req model.UpdateAltTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid alt text", err)
		return
	}

	err := h.bookService.UpdateImageAltText(c.Request.Context(), c.Param("id"), c.Param("imageId"), req.AltText)
	if err != nil {
		model.HandleBookError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// ExportCatalog - GET /v1/admin/books/export
func (h *Handler) ExportCatalog(c *gin.Context) {
	data, err := h.bookService.ExportCatalog(c.Request.Context())
	if err != nil {
		model.HandleBookError(c, err)
		return
	}

	filename := "catalogo_" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
