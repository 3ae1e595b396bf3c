package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/services"
)

type SystemHandler struct {
	log             *logger.Logger
	documentService services.DocumentService
}

func NewSystemHandler(log *logger.Logger, dsvc services.DocumentService) *SystemHandler {
	return &SystemHandler{
		log:             log.With("handler", "SystemHandler"),
		documentService: dsvc,
	}
}

// GET /
func (h *SystemHandler) Root(c *gin.Context) {
	RespondOK(c, gin.H{
		"message": "PDF RAG API",
		"status":  "running",
	})
}

// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	RespondOK(c, gin.H{"status": "healthy"})
}

// GET /api/stats
func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.documentService.Stats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"documents": gin.H{
			"total":     stats.TotalDocuments,
			"completed": stats.CompletedDocuments,
			"failed":    stats.FailedDocuments,
			"pending":   stats.PendingDocuments,
		},
		"chunks": gin.H{
			"total":        stats.TotalChunks,
			"in_vector_db": stats.VectorCount,
		},
		"chat": gin.H{
			"sessions": stats.TotalSessions,
			"messages": stats.TotalMessages,
		},
	})
}
