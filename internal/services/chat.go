package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/types"
)

type ChatServiceConfig struct {
	DefaultTopK int
	MaxTopK     int
}

type ChatRequest struct {
	SessionID     uuid.UUID
	Message       string
	TopK          int    // 0 selects the default
	Model         string // blank selects the configured chat model
	DocumentIDs   []uuid.UUID
	OnlyIfSources bool
}

type ChatResult struct {
	UserMessage      *types.ChatMessage
	AssistantMessage *types.ChatMessage
	Sources          []Source
	ResponseTimeMs   int
	TokensUsed       int
}

// SessionSummary is one row of the session list view.
type SessionSummary struct {
	Session      *types.ChatSession `json:"session"`
	MessageCount int64              `json:"message_count"`
}

// contextChunk is the JSON shape stored alongside an assistant turn so
// history can show exactly what the model saw.
type contextChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type ChatService interface {
	// GetOrCreateUser resolves the anonymous user for a browser session id,
	// minting both when the id is blank or unknown.
	GetOrCreateUser(ctx context.Context, browserSessionID string) (*types.User, error)

	CreateSession(ctx context.Context, userID uuid.UUID, name string) (*types.ChatSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]SessionSummary, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*types.ChatMessage, error)

	// Chat runs one retrieval-augmented turn. Input validation happens before
	// anything is persisted; once the user message is stored, retrieval or
	// generation failures are persisted as an assistant error turn and the
	// typed error is returned for the transport layer to classify.
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)

	// SubmitFeedback attaches a 1-5 rating to the session's latest query.
	SubmitFeedback(ctx context.Context, sessionID uuid.UUID, rating int) error
}

type chatService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	sessions    repos.ChatSessionRepo
	messages    repos.ChatMessageRepo
	metrics     repos.QueryMetricRepo
	retriever   Retriever
	synthesizer Synthesizer
	cfg         ChatServiceConfig
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	sessionRepo repos.ChatSessionRepo,
	messageRepo repos.ChatMessageRepo,
	metricRepo repos.QueryMetricRepo,
	retriever Retriever,
	synthesizer Synthesizer,
	cfg ChatServiceConfig,
) (ChatService, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil || userRepo == nil || sessionRepo == nil || messageRepo == nil ||
		metricRepo == nil || retriever == nil || synthesizer == nil {
		return nil, fmt.Errorf("all chat service dependencies are required")
	}
	if cfg.DefaultTopK <= 0 || cfg.MaxTopK < cfg.DefaultTopK {
		return nil, fmt.Errorf("invalid topK bounds: default=%d max=%d", cfg.DefaultTopK, cfg.MaxTopK)
	}
	return &chatService{
		db:          db,
		log:         baseLog.With("service", "ChatService"),
		users:       userRepo,
		sessions:    sessionRepo,
		messages:    messageRepo,
		metrics:     metricRepo,
		retriever:   retriever,
		synthesizer: synthesizer,
		cfg:         cfg,
	}, nil
}

func (s *chatService) GetOrCreateUser(ctx context.Context, browserSessionID string) (*types.User, error) {
	browserSessionID = strings.TrimSpace(browserSessionID)
	if browserSessionID == "" {
		browserSessionID = uuid.NewString()
	}
	user, err := s.users.GetBySessionID(ctx, nil, browserSessionID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if err := s.users.TouchLastActive(ctx, nil, user.ID); err != nil {
			s.log.Warn("touch last_active failed", "user_id", user.ID, "error", err)
		}
		return user, nil
	}
	now := time.Now().UTC()
	user = &types.User{
		ID:         uuid.New(),
		SessionID:  browserSessionID,
		CreatedAt:  now,
		LastActive: now,
	}
	if err := s.users.Create(ctx, nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *chatService) CreateSession(ctx context.Context, userID uuid.UUID, name string) (*types.ChatSession, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Chat " + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	now := time.Now().UTC()
	session := &types.ChatSession{
		ID:          uuid.New(),
		UserID:      userID,
		SessionName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Create(ctx, nil, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *chatService) ListSessions(ctx context.Context, userID uuid.UUID) ([]SessionSummary, error) {
	sessions, err := s.sessions.ListByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		count, err := s.messages.CountBySessionID(ctx, nil, session.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SessionSummary{Session: session, MessageCount: count})
	}
	return out, nil
}

func (s *chatService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return s.sessions.Delete(ctx, nil, id)
}

func (s *chatService) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*types.ChatMessage, error) {
	session, err := s.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.messages.ListBySessionID(ctx, nil, sessionID)
}

func (s *chatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalidParam("message", "must not be empty")
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 1 || topK > s.cfg.MaxTopK {
		return nil, invalidParam("top_k", fmt.Sprintf("must be between 1 and %d, got %d", s.cfg.MaxTopK, topK))
	}

	session, err := s.sessions.GetByID(ctx, nil, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	userMsg := &types.ChatMessage{
		ID:          uuid.New(),
		SessionID:   session.ID,
		MessageType: types.MessageTypeUser,
		Content:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, nil, userMsg); err != nil {
		return nil, err
	}

	started := time.Now()
	hits, err := s.retriever.Retrieve(ctx, message, topK, req.DocumentIDs)
	if err != nil {
		s.persistErrorTurn(ctx, session.ID,
			fmt.Sprintf("I encountered an error while processing your question: %v", err), started)
		return nil, err
	}

	result, err := s.synthesizer.Synthesize(ctx, message, req.Model, hits, req.OnlyIfSources)
	if err != nil {
		s.persistErrorTurn(ctx, session.ID,
			fmt.Sprintf("I encountered an error while generating the response: %v", err), started)
		return nil, err
	}
	elapsed := int(time.Since(started).Milliseconds())

	sourcesJSON, err := json.Marshal(result.Sources)
	if err != nil {
		return nil, err
	}
	contextJSON, err := json.Marshal(contextChunksFromHits(hits))
	if err != nil {
		return nil, err
	}
	assistantMsg := &types.ChatMessage{
		ID:             uuid.New(),
		SessionID:      session.ID,
		MessageType:    types.MessageTypeAssistant,
		Content:        result.Answer,
		Sources:        datatypes.JSON(sourcesJSON),
		ContextChunks:  datatypes.JSON(contextJSON),
		ResponseTimeMs: elapsed,
		TokensUsed:     result.TokensUsed,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, nil, assistantMsg); err != nil {
		return nil, err
	}

	metric := &types.QueryMetric{
		ID:              uuid.New(),
		SessionID:       session.ID,
		Query:           message,
		RetrievedChunks: len(hits),
		TopK:            topK,
		ResponseTimeMs:  elapsed,
		TokensUsed:      result.TokensUsed,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.metrics.Create(ctx, nil, metric); err != nil {
		s.log.Warn("query metric write failed", "session_id", session.ID, "error", err)
	}
	if err := s.sessions.TouchUpdatedAt(ctx, nil, session.ID); err != nil {
		s.log.Warn("session touch failed", "session_id", session.ID, "error", err)
	}

	return &ChatResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Sources:          result.Sources,
		ResponseTimeMs:   elapsed,
		TokensUsed:       result.TokensUsed,
	}, nil
}

// persistErrorTurn records the failure as an assistant message so the
// conversation history reflects what the user saw.
func (s *chatService) persistErrorTurn(ctx context.Context, sessionID uuid.UUID, content string, started time.Time) {
	msg := &types.ChatMessage{
		ID:             uuid.New(),
		SessionID:      sessionID,
		MessageType:    types.MessageTypeAssistant,
		Content:        content,
		ResponseTimeMs: int(time.Since(started).Milliseconds()),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, nil, msg); err != nil {
		s.log.Error("failed to persist assistant error turn", "session_id", sessionID, "error", err)
	}
}

func (s *chatService) SubmitFeedback(ctx context.Context, sessionID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return invalidParam("rating", fmt.Sprintf("must be between 1 and 5, got %d", rating))
	}
	session, err := s.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	metric, err := s.metrics.LatestBySessionID(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	if metric == nil {
		return ErrNoRecentQuery
	}
	return s.metrics.SetFeedback(ctx, nil, metric.ID, rating)
}

func contextChunksFromHits(hits []RetrievedHit) []contextChunk {
	chunks := make([]contextChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, contextChunk{
			DocumentID: h.DocumentID,
			Filename:   h.Filename,
			PageNumber: h.PageNumber,
			ChunkIndex: h.ChunkIndex,
			Content:    h.Content,
			Score:      h.Score,
		})
	}
	return chunks
}
