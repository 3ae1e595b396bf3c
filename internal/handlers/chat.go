package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, csvc services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: csvc,
	}
}

type chatRequest struct {
	SessionID     uuid.UUID   `json:"session_id" binding:"required"`
	Message       string      `json:"message" binding:"required"`
	TopK          int         `json:"top_k"`
	Model         string      `json:"model"`
	DocumentIDs   []uuid.UUID `json:"document_ids"`
	OnlyIfSources bool        `json:"only_if_sources"`
}

type chatResponse struct {
	Response       string            `json:"response"`
	Sources        []services.Source `json:"sources"`
	SessionID      uuid.UUID         `json:"session_id"`
	MessageID      uuid.UUID         `json:"message_id"`
	ResponseTimeMs int               `json:"response_time_ms"`
	TokensUsed     int               `json:"tokens_used"`
}

// POST /api/chat
// One retrieval-augmented turn against the uploaded documents.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	result, err := h.chatService.Chat(c.Request.Context(), services.ChatRequest{
		SessionID:     req.SessionID,
		Message:       req.Message,
		TopK:          req.TopK,
		Model:         req.Model,
		DocumentIDs:   req.DocumentIDs,
		OnlyIfSources: req.OnlyIfSources,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, chatResponse{
		Response:       result.AssistantMessage.Content,
		Sources:        result.Sources,
		SessionID:      req.SessionID,
		MessageID:      result.AssistantMessage.ID,
		ResponseTimeMs: result.ResponseTimeMs,
		TokensUsed:     result.TokensUsed,
	})
}

type feedbackRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Rating    int       `json:"rating" binding:"required"`
}

// POST /api/feedback
// Rates the latest answer in the session, 1 through 5.
func (h *ChatHandler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	if err := h.chatService.SubmitFeedback(c.Request.Context(), req.SessionID, req.Rating); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Feedback recorded"})
}
