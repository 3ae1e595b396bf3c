package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/utils"
)

// Config carries every tunable the core consumes. It is built once at startup
// and passed into components at construction; nothing reads ambient globals.
type Config struct {
	Port    string `yaml:"port"`
	LogMode string `yaml:"log_mode"`

	Postgres PostgresConfig `yaml:"postgres"`

	VectorProvider   string `yaml:"vector_provider"` // "qdrant" or "memory"
	QdrantURL        string `yaml:"qdrant_url"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection"`

	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingDim   int    `yaml:"embedding_dim"`
	LLMModel       string `yaml:"llm_model"`

	RedisAddr string `yaml:"redis_addr"`

	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	ChunkLookahead int `yaml:"chunk_lookahead"`

	DefaultTopK       int     `yaml:"default_top_k"`
	MaxTopK           int     `yaml:"max_top_k"`
	MinRelevanceScore float64 `yaml:"min_relevance_score"`

	UploadDir        string `yaml:"upload_dir"`
	MaxFileSizeBytes int64  `yaml:"max_file_size_bytes"`

	IngestWorkers    int `yaml:"ingest_workers"`
	EmbedBatchSize   int `yaml:"embed_batch_size"`
	MaxEmbedAttempts int `yaml:"max_embed_attempts"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.Name)
}

func defaults() Config {
	return Config{
		Port:    "8080",
		LogMode: "development",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "rag_db",
		},
		VectorProvider:    "qdrant",
		QdrantURL:         "http://localhost:6333",
		QdrantCollection:  "pdf_embeddings",
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingDim:      1536,
		LLMModel:          "gpt-4o-mini",
		ChunkSize:         1000,
		ChunkOverlap:      200,
		ChunkLookahead:    100,
		DefaultTopK:       5,
		MaxTopK:           20,
		MinRelevanceScore: 0.25,
		UploadDir:         "uploads",
		MaxFileSizeBytes:  50 * 1024 * 1024,
		IngestWorkers:     2,
		EmbedBatchSize:    16,
		MaxEmbedAttempts:  3,
	}
}

// Load builds the Config: defaults, then an optional YAML file (CONFIG_PATH or
// ./config.yaml), then environment overrides.
func Load(log *logger.Logger) (Config, error) {
	cfg := defaults()

	path := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if path == "" {
		path = "config.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Port = utils.GetEnv("PORT", cfg.Port, log)
	cfg.LogMode = utils.GetEnv("LOG_MODE", cfg.LogMode, log)

	cfg.Postgres.Host = utils.GetEnv("POSTGRES_HOST", cfg.Postgres.Host, log)
	cfg.Postgres.Port = utils.GetEnv("POSTGRES_PORT", cfg.Postgres.Port, log)
	cfg.Postgres.User = utils.GetEnv("POSTGRES_USER", cfg.Postgres.User, log)
	cfg.Postgres.Password = utils.GetEnv("POSTGRES_PASSWORD", cfg.Postgres.Password, log)
	cfg.Postgres.Name = utils.GetEnv("POSTGRES_NAME", cfg.Postgres.Name, log)

	cfg.VectorProvider = utils.GetEnv("VECTOR_PROVIDER", cfg.VectorProvider, log)
	cfg.QdrantURL = utils.GetEnv("QDRANT_URL", cfg.QdrantURL, log)
	cfg.QdrantAPIKey = utils.GetEnv("QDRANT_API_KEY", cfg.QdrantAPIKey, log)
	cfg.QdrantCollection = utils.GetEnv("QDRANT_COLLECTION", cfg.QdrantCollection, log)

	cfg.OpenAIAPIKey = utils.GetEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey, log)
	cfg.OpenAIBaseURL = utils.GetEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL, log)
	cfg.EmbeddingModel = utils.GetEnv("EMBEDDING_MODEL", cfg.EmbeddingModel, log)
	cfg.EmbeddingDim = utils.GetEnvAsInt("EMBEDDING_DIM", cfg.EmbeddingDim, log)
	cfg.LLMModel = utils.GetEnv("LLM_MODEL", cfg.LLMModel, log)

	cfg.RedisAddr = utils.GetEnv("REDIS_ADDR", cfg.RedisAddr, log)

	cfg.ChunkSize = utils.GetEnvAsInt("CHUNK_SIZE", cfg.ChunkSize, log)
	cfg.ChunkOverlap = utils.GetEnvAsInt("CHUNK_OVERLAP", cfg.ChunkOverlap, log)
	cfg.ChunkLookahead = utils.GetEnvAsInt("CHUNK_LOOKAHEAD", cfg.ChunkLookahead, log)

	cfg.DefaultTopK = utils.GetEnvAsInt("DEFAULT_TOP_K", cfg.DefaultTopK, log)
	cfg.MaxTopK = utils.GetEnvAsInt("MAX_TOP_K", cfg.MaxTopK, log)
	cfg.MinRelevanceScore = utils.GetEnvAsFloat("MIN_RELEVANCE_SCORE", cfg.MinRelevanceScore, log)

	cfg.UploadDir = utils.GetEnv("UPLOAD_DIR", cfg.UploadDir, log)
	cfg.MaxFileSizeBytes = int64(utils.GetEnvAsInt("MAX_FILE_SIZE_BYTES", int(cfg.MaxFileSizeBytes), log))

	cfg.IngestWorkers = utils.GetEnvAsInt("INGEST_WORKERS", cfg.IngestWorkers, log)
	cfg.EmbedBatchSize = utils.GetEnvAsInt("EMBED_BATCH_SIZE", cfg.EmbedBatchSize, log)
	cfg.MaxEmbedAttempts = utils.GetEnvAsInt("MAX_EMBED_ATTEMPTS", cfg.MaxEmbedAttempts, log)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	if c.ChunkLookahead < 0 {
		return fmt.Errorf("chunk_lookahead must be non-negative, got %d", c.ChunkLookahead)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > c.MaxTopK {
		return fmt.Errorf("default_top_k must be in [1, max_top_k], got %d", c.DefaultTopK)
	}
	if c.MaxTopK < 1 {
		return fmt.Errorf("max_top_k must be positive, got %d", c.MaxTopK)
	}
	if c.IngestWorkers < 1 {
		return fmt.Errorf("ingest_workers must be positive, got %d", c.IngestWorkers)
	}
	return nil
}
