package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ggenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the model used by the gemini backend when none is
// configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates slip text via the Google Gemini API.
type GeminiClient struct {
	client      *ggenai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiClient creates a new Gemini-backed client. An API key is required;
// the caller resolves it from configuration before construction.
func NewGeminiClient(ctx context.Context, opts ...Option) (*GeminiClient, error) {
	cfg := Opts{
		Model:               DefaultGeminiModel,
		Temperature:         DefaultTemperature,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai.NewGeminiClient: %w (set GEMINI_API_KEY)", ErrAPIKeyMissing)
	}

	client, err := ggenai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("genai.NewGeminiClient: failed to create client: %w", err)
	}
	slog.Debug("genai.NewGeminiClient: Gemini client initialized",
		"model", cfg.Model, "temperature", cfg.Temperature, "maxTokens", cfg.MaxCompletionTokens)

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionTokens,
	}, nil
}

// Generate produces slip text from the persona prompt and one category
// instruction. A temperature of 0 keeps the client's configured default.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("genai.GeminiClient.Generate: %w", ErrEmptyInstruction)
	}

	model := c.client.GenerativeModel(c.model)
	if systemPrompt != "" {
		model.SystemInstruction = &ggenai.Content{Parts: []ggenai.Part{ggenai.Text(systemPrompt)}}
	}

	temp := c.temperature
	if temperature > 0 {
		temp = temperature
	}
	if temp > 0 {
		model.SetTemperature(float32(temp))
	}
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}

	slog.Debug("genai.GeminiClient.Generate: requesting completion", "model", c.model, "temperature", temp)
	resp, err := model.GenerateContent(ctx, ggenai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("genai.GeminiClient.Generate: generate content failed: %w", err)
	}

	content, err := geminiResponseText(resp)
	if err != nil {
		return "", err
	}
	slog.Debug("genai.GeminiClient.Generate: completion received", "chars", len(content))
	return content, nil
}

// geminiResponseText flattens the text parts of the first candidate.
func geminiResponseText(resp *ggenai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoChoicesReturned
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", ErrNoChoicesReturned
	}

	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(ggenai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

// Describe names the backend and model for health reporting.
func (c *GeminiClient) Describe() string {
	return "gemini/" + c.model
}

// Close releases the underlying API connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
