package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

// Client is the OpenAI API surface the rest of the backend depends on.
type Client interface {
	// Embed returns one embedding per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// GenerateText runs one chat completion and returns the text plus the
	// total token usage reported by the API. A blank model uses the
	// configured default.
	GenerateText(ctx context.Context, model string, system string, user string) (string, int, error)
}

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	EmbeddingDim   int
	ChatModel      string
}

type client struct {
	log *logger.Logger
	cfg Config
	api sdk.Client
}

func NewClient(cfg Config, baseLog *logger.Logger) (Client, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apiErr("new_client", ErrorCodeValidation, "api key is required", nil)
	}
	if strings.TrimSpace(cfg.EmbeddingModel) == "" || strings.TrimSpace(cfg.ChatModel) == "" {
		return nil, apiErr("new_client", ErrorCodeValidation, "embedding and chat models are required", nil)
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, apiErr("new_client", ErrorCodeValidation, "embedding dimension must be positive", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &client{
		log: baseLog.With("service", "OpenAIClient"),
		cfg: cfg,
		api: sdk.NewClient(opts...),
	}, nil
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	const op = "embed"
	if len(inputs) == 0 {
		return nil, nil
	}
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return nil, apiErr(op, ErrorCodeValidation, fmt.Sprintf("input %d is empty", i), nil)
		}
	}
	resp, err := c.api.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: sdk.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, apiErr(op, ErrorCodeEmptyResponse,
			fmt.Sprintf("expected %d embeddings, got %d", len(inputs), len(resp.Data)), nil)
	}
	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) {
			return nil, apiErr(op, ErrorCodeEmptyResponse, fmt.Sprintf("embedding index %d out of range", i), nil)
		}
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		if len(vec) != c.cfg.EmbeddingDim {
			return nil, apiErr(op, ErrorCodeEmptyResponse,
				fmt.Sprintf("embedding dimension mismatch: expected=%d got=%d", c.cfg.EmbeddingDim, len(vec)), nil)
		}
		out[i] = vec
	}
	return out, nil
}

func (c *client) GenerateText(ctx context.Context, model string, system string, user string) (string, int, error) {
	const op = "generate_text"
	if strings.TrimSpace(user) == "" {
		return "", 0, apiErr(op, ErrorCodeValidation, "user prompt is empty", nil)
	}
	if strings.TrimSpace(model) == "" {
		model = c.cfg.ChatModel
	}
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, sdk.SystemMessage(system))
	}
	messages = append(messages, sdk.UserMessage(user))

	resp, err := c.api.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    sdk.ChatModel(model),
	})
	if err != nil {
		return "", 0, classify(op, err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, apiErr(op, ErrorCodeEmptyResponse, "no choices returned", nil)
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", 0, apiErr(op, ErrorCodeEmptyResponse, "empty completion text", nil)
	}
	return text, int(resp.Usage.TotalTokens), nil
}

func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apiErr(op, ErrorCodeTimeout, "", err)
	}
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apiErr(op, ErrorCodeInvalidAPIKey, "", err)
		case http.StatusTooManyRequests:
			return apiErr(op, ErrorCodeRateLimited, "", err)
		}
	}
	return apiErr(op, ErrorCodeRequestFailed, "", err)
}
