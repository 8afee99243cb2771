package model

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"physlib-backend/internal/shared/response"
	"physlib-backend/pkg/logger"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrImageNotFound     = errors.New("image not found")
	ErrBookConflict      = errors.New("book was modified by another editor")
	ErrSlugAlreadyExists = errors.New("slug already exists")
	ErrISBNAlreadyExists = errors.New("ISBN already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrInvalidStatus     = errors.New("invalid book status")
	ErrUploadsInFlight   = errors.New("uploads still in progress")
)

var bookErrorMap = map[error]struct {
	Status  int
	Code    string
	Message string
}{
	ErrBookNotFound:      {http.StatusNotFound, "BOOK_NOT_FOUND", "The specified book does not exist"},
	ErrImageNotFound:     {http.StatusNotFound, "IMAGE_NOT_FOUND", "The specified image does not exist"},
	ErrBookConflict:      {http.StatusConflict, "BOOK_CONFLICT", "The book has been modified by another editor. Refresh and try again"},
	ErrSlugAlreadyExists: {http.StatusConflict, "SLUG_EXISTS", "A book with a similar title already exists"},
	ErrISBNAlreadyExists: {http.StatusConflict, "ISBN_EXISTS", "This ISBN is already registered"},
	ErrCategoryNotFound:  {http.StatusBadRequest, "CATEGORY_NOT_FOUND", "One of the specified categories does not exist"},
	ErrInvalidStatus:     {http.StatusBadRequest, "INVALID_STATUS", "Book status must be available, borrowed or maintenance"},
	ErrUploadsInFlight:   {http.StatusConflict, "UPLOADS_IN_FLIGHT", "Wait for image uploads to finish before saving"},
}

// HandleBookError writes the mapped HTTP response for a domain error.
// Returns true when err was non-nil and a response was written.
func HandleBookError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	for domainErr, cfg := range bookErrorMap {
		if errors.Is(err, domainErr) {
			response.ErrorResponse(c, cfg.Status, cfg.Code, cfg.Message)
			return true
		}
	}

	logger.Error("unhandled book error", err)
	response.InternalServerError(c, "Internal server error")
	return true
}
