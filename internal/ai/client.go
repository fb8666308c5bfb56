// Package ai wraps a single chat-completion call to an OpenAI-compatible service.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4"

	placeholderKey  = "your-api-key-here"
	maxErrorSnippet = 500
)

// Config is injected at construction; the client never reads the environment.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

// Request is one prompt pair sent to the model
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Completer produces model text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Configured() bool
}

// Client calls the chat completions endpoint exactly once per request.
type Client struct {
	cfg    Config
	api    *openai.Client
	logger *logrus.Logger
}

// NewClient creates a client, filling unset config fields with defaults.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}

	return &Client{
		cfg:    cfg,
		api:    openai.NewClientWithConfig(apiConfig),
		logger: logger,
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	key := strings.TrimSpace(c.cfg.APIKey)
	return key != "" && key != placeholderKey
}

// Model returns the model name sent with each request
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends one chat completion and returns the trimmed message text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", &Error{
			Kind:    KindNotConfigured,
			Message: "OpenAI service not available. Please check your API key configuration.",
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})

	logEntry := c.logger.WithFields(logrus.Fields{
		"model":      c.cfg.Model,
		"max_tokens": req.MaxTokens,
		"duration":   time.Since(start).Round(time.Millisecond),
	})

	if err != nil {
		aiErr := c.classify(err)
		logEntry.WithFields(logrus.Fields{
			"kind":        aiErr.Kind,
			"status_code": aiErr.StatusCode,
		}).Warn("AI completion failed")
		return "", aiErr
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Message: "AI service returned no choices", StatusCode: http.StatusOK}
	}

	logEntry.Debug("AI completion succeeded")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps an error from the openai client onto an error kind.
func (c *Client) classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		if code == "" {
			code = apiErr.Type
		}
		return c.statusError(apiErr.HTTPStatusCode, code, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return c.statusError(reqErr.HTTPStatusCode, "", reqErr.Error())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return c.transportError(err)
	}
	return &Error{Kind: KindUnknown, Message: c.scrub(err.Error()), Err: err}
}

// transportError classifies failures that happen before a status is known.
func (c *Client) transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("AI service did not respond within %s", c.cfg.Timeout),
			Err:     err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "request canceled", Err: err}
	}
	return &Error{
		Kind:    KindNetwork,
		Message: "Failed to connect to OpenAI API: " + c.scrub(err.Error()),
		Err:     err,
	}
}

// statusError maps a failed response onto an error kind. The upstream error
// is not wrapped since its text may echo request headers.
func (c *Client) statusError(status int, code, message string) *Error {
	if len(message) > maxErrorSnippet {
		message = message[:maxErrorSnippet]
	}
	if strings.TrimSpace(message) == "" {
		message = "Unknown error"
	}

	e := &Error{StatusCode: status}
	switch {
	case code == "insufficient_quota":
		e.Kind = KindQuotaExceeded
		e.Message = "OpenAI API quota exceeded. Please check your account balance."
	case code == "invalid_api_key" || status == http.StatusUnauthorized:
		e.Kind = KindInvalidCredentials
		e.Message = "Invalid OpenAI API key. Please check your configuration."
	case code == "rate_limit_exceeded" || status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = "Rate limit exceeded. Please wait a moment and try again."
	case code == "model_not_found":
		e.Kind = KindUnknown
		e.Message = "Model not found. Please check the model name."
	case status == http.StatusGatewayTimeout:
		e.Kind = KindTimeout
		e.Message = "AI service timed out"
	default:
		e.Kind = KindUnknown
		e.Message = c.scrub(message)
	}
	return e
}

var keyPattern = regexp.MustCompile(`sk-[A-Za-z0-9_\-*]{6,}`)

// scrub removes anything that looks like an API key from text.
func (c *Client) scrub(text string) string {
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		text = strings.ReplaceAll(text, key, "[redacted]")
	}
	return keyPattern.ReplaceAllString(text, "sk-[redacted]")
}
