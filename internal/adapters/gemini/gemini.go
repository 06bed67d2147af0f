// Package gemini adapts the Google GenAI client to the generative and
// similarity ports.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/okian/skillgrade/internal/domain/generative"
)

const embeddingTask = "SEMANTIC_SIMILARITY"

// modelsAPI is the subset of *genai.Models the adapters call.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// NewClient creates a client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Generator implements generative.Generator for one model.
type Generator struct {
	models      modelsAPI
	modelName   string
	temperature float32
}

var _ generative.Generator = (*Generator)(nil)

// NewGenerator binds client to modelName.
func NewGenerator(client *genai.Client, modelName string) *Generator {
	return &Generator{models: client.Models, modelName: modelName, temperature: 0.2}
}

// GenerateContent requests a JSON response and returns its concatenated text.
func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.temperature),
	}
	if s := strings.TrimSpace(system); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", classify(err)
	}
	out := responseText(resp)
	if out == "" {
		return "", fmt.Errorf("%w: empty response", generative.ErrSchema)
	}
	return out, nil
}

func (g *Generator) Model() string { return g.modelName }

// Embedder implements similarity.Embedder.
type Embedder struct {
	models    modelsAPI
	modelName string
}

// NewEmbedder binds client to an embedding model.
func NewEmbedder(client *genai.Client, modelName string) *Embedder {
	return &Embedder{models: client.Models, modelName: modelName}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	res, err := e.models.EmbedContent(ctx, e.modelName, contents, &genai.EmbedContentConfig{TaskType: embeddingTask})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, errors.New("no embeddings returned")
	}
	return res.Embeddings[0].Values, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}
	return strings.TrimSpace(b.String())
}

// classify maps rate-limit responses onto generative.ErrQuota.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: %w", generative.ErrQuota, err)
	}
	return fmt.Errorf("generate content: %w", err)
}
