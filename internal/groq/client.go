package groq

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the completion model used for answer synthesis.
	DefaultModel = "llama-3.1-8b-instant"

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 30 * time.Second

	// answerTemperature keeps answers close to the provided context.
	answerTemperature = 0.3
)

// CompletionError wraps any failure of the completion API: timeouts, quota
// errors, and malformed responses all surface through it.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion request failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Client calls the Groq chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a Client against the public Groq endpoint. Empty model or
// non-positive timeout fall back to the defaults.
func New(apiKey, model string, timeout time.Duration) *Client {
	return NewWithBaseURL(apiKey, DefaultBaseURL, model, timeout)
}

// NewWithBaseURL creates a Client against a custom base URL (used in tests).
func NewWithBaseURL(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends a system instruction and user prompt to the model and
// returns the completion text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: answerTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &CompletionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &CompletionError{Err: errors.New("no choices in completion response")}
	}
	return resp.Choices[0].Message.Content, nil
}
