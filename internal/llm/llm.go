// Package llm talks to a local Ollama server.
//
// It backs the explain command: distilled samples are rendered into a
// prompt and sent to a chat model, either as a single request or as a
// token stream. The package wraps the official Ollama API client in a
// small Client type so commands deal only with messages in, text out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Common errors
var (
	ErrUnavailable = errors.New("ollama server is not reachable")
	ErrCanceled    = errors.New("operation was canceled")
)

// Config holds the model settings from the llm section of the config file.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434")
	Host string `mapstructure:"host"`

	// Model is the default model to use (e.g., "llama3.2")
	Model string `mapstructure:"model"`

	// Temperature controls response randomness (0 = deterministic)
	Temperature float32 `mapstructure:"temperature"`

	// MaxTokens caps the response length; 0 leaves it to the model
	MaxTokens int `mapstructure:"max_tokens"`
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string
	Content string
}

// ChatOptions overrides the configured model settings for one request.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response represents a complete chat response.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensTotal  int
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	Content string
	Done    bool
	Error   error
}

// Client is a chat client backed by an Ollama server.
// It is safe for concurrent use.
type Client struct {
	api    *api.Client
	config Config
	logger *slog.Logger
}

// New creates a new Client.
// If cfg.Host is empty, it uses the OLLAMA_HOST environment variable or defaults to http://localhost:11434.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	// Start with environment-based client (respects OLLAMA_HOST)
	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Error("failed to create ollama client from environment", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Override with explicit config if provided
	if cfg.Host != "" {
		parsedURL, err := url.Parse(cfg.Host)
		if err != nil {
			logger.Error("invalid ollama host URL", "host", cfg.Host, "error", err)
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}

		client = api.NewClient(parsedURL, http.DefaultClient)
		logger.Debug("created ollama client with explicit host", "host", cfg.Host)
	} else {
		logger.Debug("created ollama client from environment")
	}

	// Set default model if not specified
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
		logger.Debug("using default model", "model", cfg.Model)
	}

	return &Client{
		api:    client,
		config: cfg,
		logger: logger,
	}, nil
}

// Model returns the configured default model.
func (c *Client) Model() string {
	return c.config.Model
}

// Chat sends messages to Ollama and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	model, temperature, maxTokens := c.settings(opts)

	c.logger.Debug("sending chat request", "model", model, "messages", len(messages), "temperature", temperature)

	req := &api.ChatRequest{
		Model:    model,
		Messages: apiMessages(messages),
		Options: map[string]interface{}{
			"temperature": temperature,
		},
		Stream: new(bool), // false - we want a complete response
	}

	if maxTokens > 0 {
		req.Options["num_predict"] = maxTokens
	}

	var response api.ChatResponse
	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})

	if err != nil {
		c.logger.Error("chat request failed", "error", err, "model", model)
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("chat request completed",
		"model", response.Model,
		"prompt_tokens", response.PromptEvalCount,
		"total_tokens", response.EvalCount)

	return &Response{
		Content:      response.Message.Content,
		Model:        response.Model,
		TokensPrompt: response.PromptEvalCount,
		TokensTotal:  response.PromptEvalCount + response.EvalCount,
	}, nil
}

// ChatStream sends messages to Ollama and returns a channel of streaming events.
// The channel is closed when the stream completes or fails.
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamEvent, error) {
	if len(messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	model, temperature, maxTokens := c.settings(opts)

	c.logger.Debug("starting chat stream", "model", model, "messages", len(messages), "temperature", temperature)

	req := &api.ChatRequest{
		Model:    model,
		Messages: apiMessages(messages),
		Options: map[string]interface{}{
			"temperature": temperature,
		},
		Stream: ptrBool(true),
	}

	if maxTokens > 0 {
		req.Options["num_predict"] = maxTokens
	}

	eventChan := make(chan StreamEvent, 10)

	go func() {
		defer close(eventChan)

		err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
			select {
			case <-ctx.Done():
				c.logger.Debug("chat stream canceled by context")
				eventChan <- StreamEvent{
					Error: fmt.Errorf("%w: %v", ErrCanceled, ctx.Err()),
					Done:  true,
				}
				return ctx.Err()
			default:
			}

			if resp.Message.Content != "" {
				eventChan <- StreamEvent{
					Content: resp.Message.Content,
					Done:    resp.Done,
				}
			}

			if resp.Done {
				c.logger.Debug("chat stream completed",
					"model", resp.Model,
					"prompt_tokens", resp.PromptEvalCount,
					"total_tokens", resp.EvalCount)
			}

			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("chat stream failed", "error", err, "model", model)
			eventChan <- StreamEvent{
				Error: fmt.Errorf("%w: %v", ErrUnavailable, err),
				Done:  true,
			}
		}
	}()

	return eventChan, nil
}

// Heartbeat checks if the Ollama service is reachable and healthy.
func (c *Client) Heartbeat(ctx context.Context) error {
	c.logger.Debug("checking ollama heartbeat")

	err := c.api.Heartbeat(ctx)
	if err != nil {
		c.logger.Error("ollama heartbeat failed", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug("ollama heartbeat successful")
	return nil
}

// ModelAvailable checks if a specific model is available (i.e., has been pulled).
func (c *Client) ModelAvailable(ctx context.Context, model string) (bool, error) {
	c.logger.Debug("checking model availability", "model", model)

	listResp, err := c.api.List(ctx)
	if err != nil {
		c.logger.Error("failed to list models", "error", err)
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, modelInfo := range listResp.Models {
		if modelInfo.Name == model || modelInfo.Model == model {
			c.logger.Debug("model is available", "model", model)
			return true, nil
		}
	}

	c.logger.Debug("model not found", "model", model, "available_count", len(listResp.Models))
	return false, nil
}

// settings resolves the effective model parameters for a request.
// Per-request options win over the configured defaults.
func (c *Client) settings(opts *ChatOptions) (model string, temperature float32, maxTokens int) {
	model = c.config.Model
	temperature = c.config.Temperature
	maxTokens = c.config.MaxTokens
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		temperature = opts.Temperature
		maxTokens = opts.MaxTokens
	}
	return model, temperature, maxTokens
}

func apiMessages(messages []Message) []api.Message {
	out := make([]api.Message, len(messages))
	for i, msg := range messages {
		out[i] = api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}

// ptrBool returns a pointer to a bool value.
func ptrBool(b bool) *bool {
	return &b
}
