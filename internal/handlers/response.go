package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
func RespondServiceError(c *gin.Context, err error) {
	var ipe *services.InvalidParameterError
	if errors.As(err, &ipe) {
		RespondError(c, http.StatusBadRequest, "invalid_parameter", err)
		return
	}
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		RespondError(c, http.StatusNotFound, "document_not_found", err)
		return
	case errors.Is(err, services.ErrSessionNotFound):
		RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	case errors.Is(err, services.ErrUserNotFound):
		RespondError(c, http.StatusNotFound, "user_not_found", err)
		return
	case errors.Is(err, services.ErrNoRecentQuery):
		RespondError(c, http.StatusNotFound, "no_recent_query", err)
		return
	}
	var se *services.StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case services.StageEmbedding:
			RespondError(c, http.StatusBadGateway, "embedding_service_error", err)
		case services.StageVectorStore:
			RespondError(c, http.StatusBadGateway, "vector_store_error", err)
		case services.StageGeneration:
			RespondError(c, http.StatusBadGateway, "generation_failure", err)
		case services.StageExtraction:
			RespondError(c, http.StatusUnprocessableEntity, "extraction_failure", err)
		default:
			RespondError(c, http.StatusInternalServerError, "storage_error", err)
		}
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}
