// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/filter"
)

// Configuration constants for the completion endpoint.
const (
	// DefaultContextTurns is the rolling window size.
	DefaultContextTurns = 6

	// DefaultTimeout is the default timeout for a single request.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// userAgent identifies pocket to the inference router.
	userAgent = "pocket/1.0"
)

// Fixed replies returned in place of errors.
const (
	ReplyMissingKey  = "Missing API key."
	ReplyInvalidURL  = "Invalid API URL."
	ReplyNoResponse  = "No response from the completion service."
	ReplyUnavailable = "Sorry, the AI service is currently unavailable."
	ReplyUnknown     = "An unknown error occurred."
)

// Roles used in the request payload.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in the conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request is the JSON body posted to the endpoint.
type request struct {
	Messages    []Turn  `json:"messages"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Options configures a Client.
type Options struct {
	Endpoint          string
	Model             string
	APIKey            string
	SystemPrompt      string
	MaxTokens         int
	Temperature       float64
	ContextTurns      int
	Timeout           time.Duration
	RequestsPerMinute int

	// HTTPClient overrides the shared client (tests).
	HTTPClient *http.Client

	// Filter post-processes replies; nil uses filter.Default().
	Filter *filter.Filter
}

// OptionsFromConfig builds client options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Endpoint:          cfg.Completion.Endpoint,
		Model:             cfg.Completion.Model,
		APIKey:            cfg.APIKey,
		SystemPrompt:      cfg.Completion.SystemPrompt,
		MaxTokens:         cfg.Completion.MaxTokens,
		Temperature:       cfg.Completion.Temperature,
		ContextTurns:      cfg.Completion.ContextTurns,
		Timeout:           cfg.Completion.Timeout(),
		RequestsPerMinute: cfg.Completion.RequestsPerMinute,
	}
}

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared HTTP client for all completion requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

// Client talks to the chat-completions endpoint and owns the conversation
// context for one process.
type Client struct {
	opts    Options
	http    *http.Client
	filter  *filter.Filter
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu  sync.Mutex
	log []Turn
}

// NewClient creates a client. Zero-valued options fall back to defaults.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = DefaultContextTurns
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = config.DefaultSystemPrompt
	}
	opts.APIKey = strings.TrimSpace(opts.APIKey)

	c := &Client{
		opts:   opts,
		http:   opts.HTTPClient,
		filter: opts.Filter,
		logger: logger.With().Str("component", "completion").Logger(),
	}
	if c.http == nil {
		c.http = sharedHTTPClient
	}
	if c.filter == nil {
		c.filter = filter.Default()
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.opts.Model
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.opts.APIKey != ""
}

// Reset clears the conversation context.
func (c *Client) Reset() {
	c.mu.Lock()
	c.log = nil
	c.mu.Unlock()
	c.logger.Debug().Msg("conversation context reset")
}

// Turns returns a copy of the full context log.
func (c *Client) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.log))
	copy(out, c.log)
	return out
}

// Window returns the turns the next request would carry, oldest first.
func (c *Client) Window() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowLocked()
}

func (c *Client) windowLocked() []Turn {
	start := len(c.log) - c.opts.ContextTurns
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(c.log)-start)
	copy(out, c.log[start:])
	return out
}

func (c *Client) appendTurn(role, content string) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, Turn{Role: role, Content: content})
	return c.windowLocked()
}

// =============================================================================
// SEND
// =============================================================================

// Send appends the user message to the context, posts the rolling window to
// the endpoint and returns the cleaned reply. It always returns displayable
// text.
func (c *Client) Send(ctx context.Context, userMessage string) string {
	window := c.appendTurn(RoleUser, userMessage)

	if c.opts.APIKey == "" {
		c.logger.Warn().Msg("no API key configured")
		return ReplyMissingKey
	}
	endpoint, err := parseEndpoint(c.opts.Endpoint)
	if err != nil {
		c.logger.Warn().Err(err).Str("endpoint", c.opts.Endpoint).Msg("invalid endpoint")
		return ReplyInvalidURL
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("request pacing wait aborted")
			return ReplyNoResponse
		}
	}

	body, err := c.post(ctx, endpoint, c.buildRequest(window))
	if err != nil {
		c.logger.Error().Err(err).Msg("completion request failed")
		return ReplyNoResponse
	}

	content, ok := decode(body)
	if !ok {
		// Raw payload goes to the log for offline diagnosis.
		c.logger.Error().Bytes("payload", body).Msg("could not decode completion response")
		if !isText(body) {
			return ReplyUnknown
		}
		return ReplyUnavailable
	}

	cleaned := c.filter.Clean(strings.TrimSpace(content))
	c.appendTurn(RoleAssistant, cleaned)
	return cleaned
}

// buildRequest prefixes the window with the persona instruction.
func (c *Client) buildRequest(window []Turn) request {
	messages := make([]Turn, 0, len(window)+1)
	messages = append(messages, Turn{Role: RoleSystem, Content: c.opts.SystemPrompt})
	messages = append(messages, window...)
	return request{
		Messages:    messages,
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}
}

// post sends one request and returns the response body. An empty body is
// reported as an error.
func (c *Client) post(ctx context.Context, endpoint string, payload request) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// SECURITY: Limit response size.
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	// Headers are never logged (they carry the credential).
	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("turns", len(payload.Messages)-1).
		Dur("duration", time.Since(start)).
		Msg("completion response")

	if len(body) == 0 {
		return nil, fmt.Errorf("empty response body (HTTP %d)", resp.StatusCode)
	}
	return body, nil
}

// setHeaders sets the required headers for completion requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// parseEndpoint accepts absolute http(s) URLs only.
func parseEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint has no host")
	}
	return u.String(), nil
}
