package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/services"
	"github.com/yungbote/docchat-backend/internal/types"
)

const (
	sessionHeader  = "X-Session-ID"
	userContextKey = "current_user"
)

// SessionMiddleware resolves the anonymous user behind the X-Session-ID
// header, minting one when the header is absent. The resolved session id is
// echoed back so browsers without one can persist it.
type SessionMiddleware struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewSessionMiddleware(log *logger.Logger, csvc services.ChatService) *SessionMiddleware {
	return &SessionMiddleware{
		log:         log.With("middleware", "SessionMiddleware"),
		chatService: csvc,
	}
}

func (m *SessionMiddleware) ResolveUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.chatService.GetOrCreateUser(c.Request.Context(), c.GetHeader(sessionHeader))
		if err != nil {
			m.log.Error("user resolution failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"message": "could not resolve user session", "code": "session_error"},
			})
			return
		}
		c.Header(sessionHeader, user.SessionID)
		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user the middleware attached to the request.
func CurrentUser(c *gin.Context) (*types.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*types.User)
	return user, ok
}
