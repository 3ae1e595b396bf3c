package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docchat-backend/internal/middleware"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/services"
)

type SessionHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewSessionHandler(log *logger.Logger, csvc services.ChatService) *SessionHandler {
	return &SessionHandler{
		log:         log.With("handler", "SessionHandler"),
		chatService: csvc,
	}
}

type createUserRequest struct {
	SessionID string `json:"session_id"`
}

// POST /api/users
// Resolves or mints the anonymous user for a browser session id.
func (h *SessionHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	// Body is optional; a blank session id mints a fresh user.
	_ = c.ShouldBindJSON(&req)
	user, err := h.chatService.GetOrCreateUser(c.Request.Context(), req.SessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, user)
}

type createSessionRequest struct {
	SessionName string `json:"session_name"`
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", fmt.Errorf("no resolved user on request"))
		return
	}
	var req createSessionRequest
	_ = c.ShouldBindJSON(&req)
	session, err := h.chatService.CreateSession(c.Request.Context(), user.ID, req.SessionName)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", fmt.Errorf("no resolved user on request"))
		return
	}
	sessions, err := h.chatService.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"sessions": sessions})
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("invalid session id"))
		return
	}
	if err := h.chatService.DeleteSession(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Session deleted successfully"})
}

// GET /api/sessions/:id/messages
func (h *SessionHandler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", fmt.Errorf("invalid session id"))
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}
