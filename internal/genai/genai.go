// Package genai provides the completion backends that turn a category
// instruction into slip text.
//
// Two backends are available: the default OpenAI chat-completion client and a
// Google Gemini client (gemini.go). Both produce a single completion from the
// persona system prompt plus one category instruction, with an optional
// per-call temperature override.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults mirror the installation's tuned generation values.
const (
	// DefaultModel is the chat completion model used when none is configured.
	DefaultModel = "gpt-4.1"
	// DefaultTemperature is the sampling temperature used when none is configured.
	DefaultTemperature = 1.0
	// DefaultMaxCompletionTokens bounds slip length; receipts are short.
	DefaultMaxCompletionTokens = 400
)

// Error variables for better error handling and testability
var (
	// ErrAPIKeyMissing indicates no API key was supplied for the backend.
	ErrAPIKeyMissing = errors.New("API key is not set")
	// ErrNoChoicesReturned indicates the completion response carried no choices.
	ErrNoChoicesReturned = errors.New("no choices returned from completion")
	// ErrEmptyInstruction indicates the user prompt was empty.
	ErrEmptyInstruction = errors.New("instruction prompt cannot be empty")
)

// Opts holds configuration options for generation backends.
type Opts struct {
	APIKey              string
	Model               string
	Temperature         float64
	MaxCompletionTokens int
}

// Option defines a configuration option for generation backends.
type Option func(*Opts)

// WithAPIKey sets the API key for the backend.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel sets the model name for the backend.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithTemperature sets the default sampling temperature for the backend.
func WithTemperature(temperature float64) Option {
	return func(o *Opts) {
		o.Temperature = temperature
	}
}

// WithMaxCompletionTokens caps the completion length for the backend.
func WithMaxCompletionTokens(tokens int) Option {
	return func(o *Opts) {
		o.MaxCompletionTokens = tokens
	}
}

// chatService abstracts the chat completion API for testing.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK to the chatService interface.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client generates slip text via the OpenAI chat completion API.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int
}

// NewClient creates a new OpenAI-backed client. An API key is required; the
// caller resolves it from configuration before construction.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:               DefaultModel,
		Temperature:         DefaultTemperature,
		MaxCompletionTokens: DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai.NewClient: %w (set OPENAI_API_KEY)", ErrAPIKeyMissing)
	}

	api := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient: OpenAI client initialized",
		"model", cfg.Model, "temperature", cfg.Temperature, "maxCompletionTokens", cfg.MaxCompletionTokens)

	return &Client{
		chat:                &openaiChatService{client: api},
		model:               cfg.Model,
		temperature:         cfg.Temperature,
		maxCompletionTokens: cfg.MaxCompletionTokens,
	}, nil
}

// Generate produces slip text from the persona prompt and one category
// instruction. A temperature of 0 keeps the client's configured default. The
// returned text is whitespace-trimmed and may be empty if the model produced
// nothing printable; the caller decides what an empty slip means.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if userPrompt == "" {
		return "", fmt.Errorf("genai.Generate: %w", ErrEmptyInstruction)
	}

	temp := c.temperature
	if temperature > 0 {
		temp = temperature
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}
	if c.maxCompletionTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxCompletionTokens))
	}

	slog.Debug("genai.Generate: requesting completion", "model", c.model, "temperature", temp)
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("genai.Generate: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("genai.Generate: completion received", "chars", len(content))
	return content, nil
}

// Describe names the backend and model for health reporting.
func (c *Client) Describe() string {
	return "openai/" + c.model
}
