// Package googleai implements embeddings.Client on the Gemini API through the Google Gen AI SDK.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/learnhub/engine/internal/embeddings"
	pkgembeddings "github.com/learnhub/engine/pkg/embeddings"
)

var (
	// ErrEmptyInput is returned when Embed is called with empty input.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("googleai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const defaultModel = "gemini-embedding-001"

// Client calls the Gemini embeddings API via the Google Gen AI SDK.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets OutputDimensionality; it must match the vector column.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name (e.g. gemini-embedding-001). Empty uses default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// NewClient creates a Gemini embeddings client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	client := &Client{
		client:     genaiClient,
		model:      defaultModel,
		dimensions: embeddings.DefaultDimensions,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Embed returns the embedding for input. The task type is passed through as
// EmbedContentConfig.TaskType; empty means SEMANTIC_SIMILARITY.
func (c *Client) Embed(ctx context.Context, input string, task embeddings.TaskType) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	//nolint:gosec // G115: c.dimensions is bounded above by math.MaxInt32
	dims := int32(c.dimensions)

	resp, err := c.client.Models.EmbedContent(ctx, c.modelName(),
		[]*genai.Content{genai.NewContentFromText(input, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             string(task.OrDefault()),
			OutputDimensionality: &dims,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbeddingInResponse
	}

	values := resp.Embeddings[0].Values
	if len(values) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(values), c.dimensions)
	}

	// Gemini only pre-normalizes full-size outputs; truncated ones need it for cosine math.
	out := make([]float32, len(values))
	copy(out, values)
	pkgembeddings.NormalizeL2(out)

	return out, nil
}

func (c *Client) modelName() string {
	if c.model == "" {
		return defaultModel
	}

	return c.model
}

var _ embeddings.Client = (*Client)(nil)
