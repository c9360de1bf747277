// Package llm is the client for the OpenAI-compatible text-generation
// service.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hpungsan/mahader/internal/config"
	"github.com/hpungsan/mahader/internal/errors"
)

// Role is the author of a request message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a generation request.
type Message struct {
	Role    Role
	Content string
}

// Request is a single non-streaming chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// Generator produces a markdown answer for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	// HasCredential gates generation; without it Generate always fails.
	HasCredential() bool
}

// ErrMissingCredential is returned by Generate when no credential is configured.
var ErrMissingCredential = errors.NewMissingCredential()

// Client wraps a langchaingo model.
type Client struct {
	llm       llms.Model
	modelName string
}

// New creates a client from configuration. Without a credential it returns a
// client whose HasCredential is false.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.HasCredential() {
		return &Client{modelName: cfg.Model}, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewWithModel(model, cfg.Model), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, modelName string) *Client {
	return &Client{llm: model, modelName: modelName}
}

// HasCredential reports whether the client can reach the service.
func (c *Client) HasCredential() bool {
	return c.llm != nil
}

// Model returns the default model name.
func (c *Client) Model() string {
	return c.modelName
}

// Generate sends req and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.llm == nil {
		return "", ErrMissingCredential
	}

	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llms.TextParts(chatType(m.Role), m.Content))
	}

	model := req.Model
	if model == "" {
		model = c.modelName
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithModel(model),
		llms.WithTemperature(req.Temperature),
	)
	if err != nil {
		return "", errors.NewGenerationFailed(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewGenerationFailed(fmt.Errorf("no response choices"))
	}
	return resp.Choices[0].Content, nil
}

func chatType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
