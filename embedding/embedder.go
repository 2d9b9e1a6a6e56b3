// Package embedding wraps the Gemini embedding API behind a small provider
// interface.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"newsiq/config"
)

// Error marks an embedding failure so callers can tell it apart from their
// own storage errors. Articles stay un-embedded on failure, never zeroed.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("embedding generation: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Provider turns text into a fixed-length embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiEmbedder generates embeddings with the configured Gemini model.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

func NewGeminiEmbedder(ctx context.Context) (*GeminiEmbedder, error) {
	cfg := config.GetConfig()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GeminiApiKey,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{
		client:     client,
		model:      cfg.EmbeddingModel,
		dimensions: int32(cfg.EmbeddingDimensions),
	}, nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := g.dimensions
	result, err := g.client.Models.EmbedContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{OutputDimensionality: &dims},
	)
	if err != nil {
		return nil, &Error{Err: err}
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, &Error{Err: fmt.Errorf("empty embedding response")}
	}
	return result.Embeddings[0].Values, nil
}
