// Package studio – client.go implements the chat completions client for the
// generation API. Uses the OpenAI-compatible request format, which works
// with Groq and any compatible endpoint.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the generation client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.groq.com/openai/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer token. Usually resolved from keyring or env.
	APIKey string `yaml:"api_key"`

	// Models is the pool of equivalent model IDs; one is chosen at random
	// per request.
	Models []string `yaml:"models"`

	// Temperature for all requests.
	Temperature float64 `yaml:"temperature"`

	// RequestTimeoutSeconds bounds a single HTTP attempt.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	// MaxAttempts is the bounded retry count per call.
	MaxAttempts int `yaml:"max_attempts"`

	// ConverseBackoffSeconds is the linear backoff step for chat replies.
	ConverseBackoffSeconds int `yaml:"converse_backoff_seconds"`

	// CreateBackoffSeconds is the linear backoff step for system creation.
	CreateBackoffSeconds int `yaml:"create_backoff_seconds"`

	// ConverseMaxTokens is the token budget for chat replies.
	ConverseMaxTokens int `yaml:"converse_max_tokens"`

	// CreateMaxTokens is the token budget for system creation.
	CreateMaxTokens int `yaml:"create_max_tokens"`

	// TopicKeywords gates requests before any API call. Empty disables
	// the gate; nil uses the built-in Roblox list.
	TopicKeywords []string `yaml:"topic_keywords"`
}

// DefaultConfig returns a Config with the standard Groq pool and budgets.
func DefaultConfig() Config {
	return Config{
		BaseURL:                "https://api.groq.com/openai/v1",
		Models:                 []string{"llama3-70b-8192", "mixtral-8x7b-32768", "gemma-7b-it"},
		Temperature:            0.7,
		RequestTimeoutSeconds:  60,
		MaxAttempts:            3,
		ConverseBackoffSeconds: 2,
		CreateBackoffSeconds:   4,
		ConverseMaxTokens:      1500,
		CreateMaxTokens:        6000,
		TopicKeywords:          nil,
	}
}

// Client issues prompted requests against the generation API with bounded
// retry, then hands raw text to the response parser.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	// pickModel selects from the pool; swappable in tests.
	pickModel func([]string) string
}

// New creates a generation client from config.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultConfig().Models
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 60
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.ConverseMaxTokens <= 0 {
		cfg.ConverseMaxTokens = 1500
	}
	if cfg.CreateMaxTokens <= 0 {
		cfg.CreateMaxTokens = 6000
	}
	if cfg.TopicKeywords == nil {
		cfg.TopicKeywords = defaultTopicKeywords
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			// No global timeout: each attempt carries its own
			// context.WithTimeout for precise per-call control.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     120 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger:    logger.With("component", "studio"),
		pickModel: func(models []string) string { return models[rand.Intn(len(models))] },
	}
}

// ---------- Wire types (OpenAI-compatible) ----------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ---------- Error classification ----------

// errKind classifies a failed attempt for retry decisions and logging.
type errKind int

const (
	errRetryable errKind = iota // transient HTTP/network failure
	errRateLimit                // 429
	errTimeout                  // deadline exceeded
)

func (k errKind) String() string {
	switch k {
	case errRateLimit:
		return "rate_limit"
	case errTimeout:
		return "timeout"
	default:
		return "retryable"
	}
}

// apiError captures HTTP status and body, plus Retry-After for 429.
type apiError struct {
	statusCode    int
	body          string
	retryAfterSec int
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.statusCode, truncate(e.body, 200))
}

// kindOf maps any attempt error to its kind. A timeout counts the same as
// any other failed attempt for retry purposes; the caller's wall-clock cap
// is enforced separately via context.
func kindOf(err error) errKind {
	var apierr *apiError
	if errors.As(err, &apierr) && apierr.statusCode == http.StatusTooManyRequests {
		return errRateLimit
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errTimeout
	}
	return errRetryable
}

// ---------- Requests ----------

// completeOnce performs a single chat completion attempt. Returns *apiError
// on non-200 so the retry policy can classify it.
func (c *Client) completeOnce(ctx context.Context, model string, messages []chatMessage, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apierr := &apiError{statusCode: resp.StatusCode, body: string(respBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if sec, err := strconv.Atoi(ra); err == nil && sec > 0 {
					apierr.retryAfterSec = sec
				}
			}
		}
		c.logger.Error("API error",
			"model", model,
			"status", resp.StatusCode,
			"body", truncate(string(respBody), 500),
		)
		return "", apierr
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	c.logger.Info("chat completion done",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"content_len", len(content),
	)

	return content, nil
}

// conversePolicy and createPolicy build the two retry policies from config.
// Same loop, different backoff step and token budget.
func (c *Client) conversePolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:    c.cfg.MaxAttempts,
		backoffStep:    time.Duration(c.cfg.ConverseBackoffSeconds) * time.Second,
		rateLimitPause: 2 * time.Second,
	}
}

func (c *Client) createPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:    c.cfg.MaxAttempts,
		backoffStep:    time.Duration(c.cfg.CreateBackoffSeconds) * time.Second,
		rateLimitPause: 2 * time.Second,
	}
}

// ---------- Public API ----------

// Converse produces a short conversational reply. Degrades to a canned
// fallback string rather than propagating an error upward: chat replies are
// best-effort by contract.
func (c *Client) Converse(ctx context.Context, userText string) string {
	if !onTopic(userText, c.cfg.TopicKeywords) {
		return offTopicNotice
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: conversePrompt(userText)},
	}

	logger := c.logger.With("request_id", uuid.NewString(), "op", "converse")
	out, err := c.conversePolicy().run(ctx, logger, func(int) (string, error) {
		return c.completeOnce(ctx, c.pickModel(c.cfg.Models), messages, c.cfg.ConverseMaxTokens)
	})
	if err != nil {
		logger.Warn("conversation attempts exhausted, using fallback", "error", err)
		return converseFallback
	}
	return out
}

// GenerateSystem produces a complete multi-file Roblox system for the given
// description. Exhausted retries return a typed failure result, never an
// error. A response without recognizable headers or fences is wrapped as a
// single server artifact so the user always receives something on success.
func (c *Client) GenerateSystem(ctx context.Context, description string) *SystemResult {
	if !onTopic(description, c.cfg.TopicKeywords) {
		return &SystemResult{Success: false, Reason: offTopicCreationReason}
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: creationPrompt(description)},
	}

	logger := c.logger.With("request_id", uuid.NewString(), "op", "generate_system")
	out, err := c.createPolicy().run(ctx, logger, func(int) (string, error) {
		return c.completeOnce(ctx, c.pickModel(c.cfg.Models), messages, c.cfg.CreateMaxTokens)
	})
	if err != nil {
		logger.Warn("system generation exhausted", "error", err)
		return &SystemResult{Success: false, Reason: creationFailureReason}
	}

	artifacts := ExtractArtifacts(out)
	if len(artifacts) == 0 {
		artifacts = []Artifact{{
			Name:     "RobloxSystem.server.lua",
			Body:     out,
			Kind:     KindServer,
			Location: "ServerScriptService/System",
		}}
	}

	logger.Info("system generated", "artifacts", len(artifacts))
	return &SystemResult{
		Success:      true,
		Artifacts:    artifacts,
		InstallGuide: ExtractInstallGuide(out),
		Raw:          out,
	}
}

// truncate shortens s to at most n bytes for log output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
