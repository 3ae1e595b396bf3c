package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

// InsufficientSourcesMessage is returned verbatim, with no model call, when a
// grounded-only question retrieves nothing.
const InsufficientSourcesMessage = "I couldn't find any relevant information in the uploaded documents to answer your question. Please try rephrasing your question or upload relevant documents."

// TextGenerator is the slice of the model client the synthesizer needs. An
// empty model selects the client's configured default.
type TextGenerator interface {
	GenerateText(ctx context.Context, model string, system string, user string) (string, int, error)
}

// Source is the citation record attached to an assistant answer.
type Source struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	PageNumber     int     `json:"page_number"`
	ChunkIndex     int     `json:"chunk_index"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

type SynthesisResult struct {
	Answer     string
	Sources    []Source
	TokensUsed int
	// Grounded is false only for the insufficient-sources short circuit.
	Grounded bool
}

// Synthesizer turns retrieved context into a cited answer. The model id is
// chosen per call; blank falls through to the generator's default.
type Synthesizer interface {
	Synthesize(ctx context.Context, query, model string, hits []RetrievedHit, onlyIfSources bool) (SynthesisResult, error)
}

type synthesizer struct {
	log       *logger.Logger
	generator TextGenerator
}

func NewSynthesizer(baseLog *logger.Logger, generator TextGenerator) (Synthesizer, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	return &synthesizer{
		log:       baseLog.With("service", "Synthesizer"),
		generator: generator,
	}, nil
}

func (s *synthesizer) Synthesize(ctx context.Context, query, model string, hits []RetrievedHit, onlyIfSources bool) (SynthesisResult, error) {
	if onlyIfSources && len(hits) == 0 {
		return SynthesisResult{Answer: InsufficientSourcesMessage}, nil
	}

	answer, tokens, err := s.generator.GenerateText(ctx, model, "", buildPrompt(query, hits))
	if err != nil {
		return SynthesisResult{}, stageErr(StageGeneration, err)
	}
	return SynthesisResult{
		Answer:     answer,
		Sources:    sourcesFromHits(hits),
		TokensUsed: tokens,
		Grounded:   true,
	}, nil
}

func buildPrompt(query string, hits []RetrievedHit) string {
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[Document: %s, Page: %d]\n%s", h.Filename, h.PageNumber, h.Content))
	}
	contextText := strings.Join(blocks, "\n\n")

	return fmt.Sprintf(`You are a helpful AI assistant that answers questions based on provided PDF document content.

Your task is to:
1. Answer the user's question using ONLY the information provided in the context below
2. Be accurate and specific
3. Include citations in your response by referencing the document name and page number
4. If the context doesn't contain enough information to answer the question completely, say so clearly
5. Do not make up information that isn't in the provided context

Context from PDF documents:
%s

User Question: %s

Please provide a comprehensive answer based on the context above. Include specific citations (document name and page number) for each piece of information you reference.`, contextText, query)
}

func sourcesFromHits(hits []RetrievedHit) []Source {
	sources := make([]Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, Source{
			DocumentID:     h.DocumentID,
			DocumentName:   h.Filename,
			PageNumber:     h.PageNumber,
			ChunkIndex:     h.ChunkIndex,
			Content:        h.Content,
			RelevanceScore: h.Score,
		})
	}
	return sources
}
