package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/services"
)

type DocumentHandler struct {
	log             *logger.Logger
	documentService services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, dsvc services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		log:             log.With("handler", "DocumentHandler"),
		documentService: dsvc,
	}
}

// POST /api/documents/upload
// Accepts one multipart PDF, dedupes by content hash and queues ingestion.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", err)
		return
	}

	doc, duplicate, err := h.documentService.Upload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	status := http.StatusCreated
	message := "Document uploaded and queued for processing"
	if duplicate {
		status = http.StatusOK
		message = "Document with identical content already exists"
	}
	c.JSON(status, gin.H{
		"document":  doc,
		"duplicate": duplicate,
		"message":   message,
	})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"documents": docs})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("invalid document id"))
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, doc)
}

// GET /api/documents/:id/chunks
func (h *DocumentHandler) GetChunks(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("invalid document id"))
		return
	}
	chunks, err := h.documentService.GetChunks(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"chunks": chunks})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("invalid document id"))
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Document deleted successfully"})
}
