package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/clients/redis"
	"github.com/yungbote/docchat-backend/internal/config"
	"github.com/yungbote/docchat-backend/internal/db"
	"github.com/yungbote/docchat-backend/internal/handlers"
	"github.com/yungbote/docchat-backend/internal/middleware"
	"github.com/yungbote/docchat-backend/internal/platform/filestore"
	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/platform/pdfextract"
	"github.com/yungbote/docchat-backend/internal/platform/qdrant"
	"github.com/yungbote/docchat-backend/internal/platform/vectorstore"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/server"
	"github.com/yungbote/docchat-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Error("Config load failed", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(cfg, log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	documentRepo := repos.NewDocumentRepo(thePG, log)
	documentChunkRepo := repos.NewDocumentChunkRepo(thePG, log)
	chatSessionRepo := repos.NewChatSessionRepo(thePG, log)
	chatMessageRepo := repos.NewChatMessageRepo(thePG, log)
	queryMetricRepo := repos.NewQueryMetricRepo(thePG, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Platform clients
	log.Info("Setting up platform clients from main...")
	var store vectorstore.VectorStore
	switch cfg.VectorProvider {
	case "memory":
		store, err = vectorstore.NewMemoryStore(log, cfg.EmbeddingDim)
	default:
		store, err = qdrant.NewVectorStore(ctx, qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			VectorDim:  cfg.EmbeddingDim,
		}, log)
	}
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	openaiClient, err := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		EmbeddingDim:   cfg.EmbeddingDim,
		ChatModel:      cfg.LLMModel,
	}, log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}

	extractor, err := pdfextract.NewExtractor(log)
	if err != nil {
		log.Error("Could not init PDF extractor", "error", err)
		os.Exit(1)
	}

	files, err := filestore.NewLocalStore(cfg.UploadDir, log)
	if err != nil {
		log.Error("Could not init file store", "error", err)
		os.Exit(1)
	}

	embedCache, err := redis.NewEmbedCache(cfg.RedisAddr, log)
	if err != nil {
		log.Warn("Could not init embed cache, continuing without it", "error", err)
	}
	if embedCache != nil {
		defer embedCache.Close()
	}

	splitter, err := chunker.New(chunker.Params{
		Size:      cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
		LookAhead: cfg.ChunkLookahead,
	})
	if err != nil {
		log.Error("Could not init chunker", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	indexer, err := services.NewEmbeddingIndexer(log, openaiClient, store, embedCache, services.EmbeddingIndexerConfig{
		Model:       cfg.EmbeddingModel,
		BatchSize:   cfg.EmbedBatchSize,
		Workers:     cfg.IngestWorkers,
		MaxAttempts: cfg.MaxEmbedAttempts,
	})
	if err != nil {
		log.Error("Could not init EmbeddingIndexer", "error", err)
		os.Exit(1)
	}
	retriever, err := services.NewRetriever(log, indexer, store, services.RetrieverConfig{
		MaxTopK:  cfg.MaxTopK,
		MinScore: cfg.MinRelevanceScore,
	})
	if err != nil {
		log.Error("Could not init Retriever", "error", err)
		os.Exit(1)
	}
	synthesizer, err := services.NewSynthesizer(log, openaiClient)
	if err != nil {
		log.Error("Could not init Synthesizer", "error", err)
		os.Exit(1)
	}
	ingestionService, err := services.NewIngestionService(thePG, log, documentRepo, documentChunkRepo, store, indexer, extractor, files, splitter)
	if err != nil {
		log.Error("Could not init IngestionService", "error", err)
		os.Exit(1)
	}
	documentService, err := services.NewDocumentService(thePG, log, documentRepo, documentChunkRepo, chatSessionRepo, chatMessageRepo, store, files, ingestionService, services.DocumentServiceConfig{
		MaxFileSizeBytes: cfg.MaxFileSizeBytes,
	})
	if err != nil {
		log.Error("Could not init DocumentService", "error", err)
		os.Exit(1)
	}
	chatService, err := services.NewChatService(thePG, log, userRepo, chatSessionRepo, chatMessageRepo, queryMetricRepo, retriever, synthesizer, services.ChatServiceConfig{
		DefaultTopK: cfg.DefaultTopK,
		MaxTopK:     cfg.MaxTopK,
	})
	if err != nil {
		log.Error("Could not init ChatService", "error", err)
		os.Exit(1)
	}

	// Ingestion workers
	ingestionService.StartWorkers(ctx, cfg.IngestWorkers)
	defer ingestionService.Stop()

	// Handlers
	log.Info("Setting up Handlers from main...")
	documentHandler := handlers.NewDocumentHandler(log, documentService)
	sessionHandler := handlers.NewSessionHandler(log, chatService)
	chatHandler := handlers.NewChatHandler(log, chatService)
	systemHandler := handlers.NewSystemHandler(log, documentService)
	sessionMiddleware := middleware.NewSessionMiddleware(log, chatService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		DocumentHandler:   documentHandler,
		SessionHandler:    sessionHandler,
		ChatHandler:       chatHandler,
		SystemHandler:     systemHandler,
		SessionMiddleware: sessionMiddleware,
	})

	log.Info("Starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
