package upload

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	bookmodel "physlib-backend/internal/domains/book/model"
	"physlib-backend/internal/domains/book/repository"
	"physlib-backend/internal/shared/response"
	"physlib-backend/pkg/logger"
)

// Handler serves the upload-session HTTP surface used by the book edit
// screen.
type Handler struct {
	registry  *Registry
	bookRepo  repository.BookRepository
	imageRepo repository.BookImageRepository
}

func NewHandler(registry *Registry, bookRepo repository.BookRepository, imageRepo repository.BookImageRepository) *Handler {
	return &Handler{
		registry:  registry,
		bookRepo:  bookRepo,
		imageRepo: imageRepo,
	}
}

// OpenSession - POST /v1/books/:id/upload-sessions
func (h *Handler) OpenSession(c *gin.Context) {
	bookID := c.Param("id")

	if _, err := h.bookRepo.GetByID(c.Request.Context(), bookID); err != nil {
		bookmodel.HandleBookError(c, err)
		return
	}

	hasCover := false
	images, err := h.imageRepo.GetByBookID(c.Request.Context(), bookID)
	if err != nil {
		bookmodel.HandleBookError(c, err)
		return
	}
	for _, img := range images {
		if img.IsCover {
			hasCover = true
			break
		}
	}

	session := h.registry.Open(bookID, hasCover)
	response.Success(c, http.StatusCreated, gin.H{
		"session_id": session.ID,
		"book_id":    bookID,
	})
}

// AcceptFiles - POST /v1/upload-sessions/:sessionId/files
//
// Multipart form, field name "files". Every accepted file starts its
// staged upload immediately; rejected files are reported per-file.
func (h *Handler) AcceptFiles(c *gin.Context) {
	session, err := h.registry.Get(c.Param("sessionId"))
	if err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "Invalid multipart form")
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		response.BadRequest(c, "No files provided")
		return
	}

	altTexts := form.Value["alt_texts"]

	inputs := make([]FileInput, 0, len(fileHeaders))
	for i, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "Could not read uploaded file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			response.BadRequest(c, "Could not read uploaded file "+fh.Filename)
			return
		}

		input := FileInput{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
		if i < len(altTexts) {
			input.AltText = altTexts[i]
		}
		inputs = append(inputs, input)
	}

	accepted, rejected := session.AcceptFiles(inputs)
	response.Success(c, http.StatusAccepted, gin.H{
		"accepted": accepted,
		"rejected": rejected,
	})
}

// GetSession - GET /v1/upload-sessions/:sessionId
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.registry.Get(c.Param("sessionId"))
	if err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id": session.ID,
		"book_id":    session.BookID,
		"uploading":  session.Uploading(),
		"images":     session.Images(),
	})
}

// CancelUpload - POST /v1/upload-sessions/:sessionId/images/:imageId/cancel
func (h *Handler) CancelUpload(c *gin.Context) {
	session, err := h.registry.Get(c.Param("sessionId"))
	if err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}

	if err := session.CancelUpload(c.Param("imageId")); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			response.NotFound(c, "Staged image not found")
			return
		}
		response.InternalServerError(c, "Could not cancel upload")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

// RemoveImage - DELETE /v1/upload-sessions/:sessionId/images/:imageId
func (h *Handler) RemoveImage(c *gin.Context) {
	session, err := h.registry.Get(c.Param("sessionId"))
	if err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}

	if err := session.RemoveImage(c.Request.Context(), c.Param("imageId")); err != nil {
		if errors.Is(err, ErrImageNotFound) {
			response.NotFound(c, "Staged image not found")
			return
		}
		response.InternalServerError(c, "Could not remove image")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// SetCover - PUT /v1/upload-sessions/:sessionId/images/:imageId/cover
//
// Marks a staged image as the cover. The single-cover invariant spans
// staged and persisted images, so the persisted covers are unset here
// as well.
func (h *Handler) SetCover(c *gin.Context) {
	session, err := h.registry.Get(c.Param("sessionId"))
	if err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}

	unsetExisting, err := session.SetCover(c.Param("imageId"))
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			response.NotFound(c, "Staged image not found")
			return
		}
		response.InternalServerError(c, "Could not set cover")
		return
	}

	if unsetExisting {
		if err := h.imageRepo.UnsetAllCovers(c.Request.Context(), session.BookID); err != nil {
			logger.Warn("could not unset persisted covers", map[string]interface{}{
				"book_id": session.BookID,
				"error":   err.Error(),
			})
		}
	}

	response.Success(c, http.StatusOK, gin.H{"cover_set": true})
}

// CloseSession - DELETE /v1/upload-sessions/:sessionId
//
// Edit-screen teardown: cancels in-flight uploads and sweeps temp
// objects that were never relocated.
func (h *Handler) CloseSession(c *gin.Context) {
	if err := h.registry.Close(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.NotFound(c, "Upload session not found")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"closed": true})
}
