package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/handlers"
	"github.com/yungbote/docchat-backend/internal/middleware"
)

type RouterConfig struct {
	DocumentHandler   *handlers.DocumentHandler
	SessionHandler    *handlers.SessionHandler
	ChatHandler       *handlers.ChatHandler
	SystemHandler     *handlers.SystemHandler
	SessionMiddleware *middleware.SessionMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:8501",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Session-ID"},
		ExposeHeaders:    []string{"X-Session-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/", cfg.SystemHandler.Root)
	router.GET("/health", cfg.SystemHandler.Health)

	// ===============
	// || API       ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.SessionMiddleware.ResolveUser())
	{
		// Users & sessions
		api.POST("/users", cfg.SessionHandler.CreateUser)
		api.POST("/sessions", cfg.SessionHandler.Create)
		api.GET("/sessions", cfg.SessionHandler.List)
		api.DELETE("/sessions/:id", cfg.SessionHandler.Delete)
		api.GET("/sessions/:id/messages", cfg.SessionHandler.ListMessages)

		// Documents
		api.POST("/documents/upload", cfg.DocumentHandler.Upload)
		api.GET("/documents", cfg.DocumentHandler.List)
		api.GET("/documents/:id", cfg.DocumentHandler.Get)
		api.GET("/documents/:id/chunks", cfg.DocumentHandler.GetChunks)
		api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)

		// Chat
		api.POST("/chat", cfg.ChatHandler.Chat)
		api.POST("/feedback", cfg.ChatHandler.SubmitFeedback)

		// Stats
		api.GET("/stats", cfg.SystemHandler.Stats)
	}

	return router
}
