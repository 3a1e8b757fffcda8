// Package llm wraps the OpenAI-compatible chat protocol used by every
// supported provider (OpenAI, local Ollama, and a mock for tests).
package llm

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats represents statistics for a single LLM call, used for
// performance logging and cost tracking.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message) (string, *CallStats, error)
}

// Recorder receives statistics for every completed request, successful
// or not, so a metrics exporter can be injected without this package
// depending on one.
type Recorder interface {
	RecordLLMCall(model, provider string, latency time.Duration, promptTokens, completionTokens int, success bool)
}

// Option configures the service. Options are ignored by the mock
// provider.
type Option func(*service)

// WithRecorder attaches a call recorder (e.g. a Prometheus exporter).
func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, ollama, mock
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 500
	Temperature float32 // default: 0.7
	Timeout     int     // Request timeout in seconds (default: 30)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
	recorder    Recorder
}

// NewService creates a new LLM Service for the configured provider.
func NewService(cfg *Config, opts ...Option) (Service, error) {
	if cfg.Provider == "mock" {
		return NewMockService(), nil
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = newHTTPClient()

	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		clientConfig.BaseURL = baseURL

	default:
		// Generic fallback for any other OpenAI-compatible endpoint.
		slog.Info("using generic OpenAI-compatible provider", "provider", cfg.Provider)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	s := &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    chatMessages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.record(time.Since(start), 0, 0, false)
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		s.record(time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, false)
		return "", nil, ErrEmptyResponse
	}

	stats := &CallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  time.Since(start).Milliseconds(),
	}
	s.record(time.Since(start), stats.PromptTokens, stats.CompletionTokens, true)
	slog.Debug("llm call completed",
		"provider", s.provider,
		"model", s.model,
		"total_tokens", stats.TotalTokens,
		"duration_ms", stats.TotalDurationMs)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) record(latency time.Duration, promptTokens, completionTokens int, success bool) {
	if s.recorder != nil {
		s.recorder.RecordLLMCall(s.model, s.provider, latency, promptTokens, completionTokens, success)
	}
}
