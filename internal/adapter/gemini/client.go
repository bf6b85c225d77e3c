package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultChatModel      = "gemini-1.5-flash"

	// Questions are indexed as documents and user queries embedded as queries.
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

var ErrEmptyResponse = errors.New("gemini returned no content")

// Config selects models and the generation parameters applied to every completion.
type Config struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	Temperature    float32
	MaxTokens      int32
	Timeout        time.Duration
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string
}

// Client implements both repository.Embedder and repository.Completer on top
// of the Gemini API.
type Client struct {
	client *genai.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a Gemini backed embedder and completer.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, cfg: cfg, logger: logger}, nil
}

func (c *Client) Name() string { return "gemini" }

// Embed embeds a single search query.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds corpus entries in one request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return c.embed(ctx, texts, taskRetrievalDocument)
}

func (c *Client) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: input %d: %w", i, ErrEmptyResponse)
		}
		out[i] = e.Values
	}
	c.logger.Debug("embedded texts",
		zap.Int("count", len(texts)),
		zap.String("task", task),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Complete generates an answer for prompt under the given system instruction.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.cfg.Temperature),
		MaxOutputTokens: c.cfg.MaxTokens,
	}
	if strings.TrimSpace(systemPrompt) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.ChatModel, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.logger.Debug("generated completion",
		zap.String("model", c.cfg.ChatModel),
		zap.Int("response_len", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}
