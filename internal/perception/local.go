package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ideaforge/internal/logging"
)

// LocalClient talks to an on-host OpenAI-compatible server (llama.cpp,
// ollama, vLLM) over /v1/chat/completions.
type LocalClient struct {
	baseURL    string
	apiKey     string // optional; most local servers ignore it
	model      string
	httpClient *http.Client
}

// LocalConfig holds configuration for the local provider.
type LocalConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultLocalConfig returns sensible defaults for an ollama-style server.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
		Timeout: 120 * time.Second,
	}
}

// NewLocalClient creates a local provider with the given config.
func NewLocalClient(cfg LocalConfig) *LocalClient {
	def := DefaultLocalConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &LocalClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *LocalClient) Name() string { return "local" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request. Retries up to 3 times on 429
// and transport errors with exponential backoff; 4xx and empty completions
// are permanent.
func (c *LocalClient) Generate(ctx context.Context, req Request) (Response, error) {
	prompt := req.Prompt
	if req.JSONSchema != nil {
		// No constrained decoding on the OpenAI-compatible surface; spell
		// the schema out in the prompt instead.
		schemaJSON, _ := json.Marshal(req.JSONSchema)
		prompt += "\n\nRespond with JSON matching this schema, and nothing else:\n" + string(schemaJSON)
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	const maxRetries = 3
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logging.Provider("local: retry %d after %v: %v", attempt, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Response{}, ctx.Err()
			}
		}

		resp, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		if !retryable {
			return Response{}, err
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("local: max retries exceeded: %w", lastErr)
}

func (c *LocalClient) doOnce(ctx context.Context, body []byte) (Response, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, false, ctx.Err()
		}
		return Response{}, true, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return Response{}, true, fmt.Errorf("rate limit exceeded (429)")
	case httpResp.StatusCode >= 500:
		return Response{}, true, fmt.Errorf("server error %d: %s", httpResp.StatusCode, truncate(string(raw), 200))
	case httpResp.StatusCode != http.StatusOK:
		return Response{}, false, &PermanentError{Provider: "local", Reason: fmt.Sprintf("status %d: %s", httpResp.StatusCode, truncate(string(raw), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, false, &PermanentError{Provider: "local", Reason: fmt.Sprintf("unparseable response: %v", err)}
	}
	if parsed.Error != nil {
		return Response{}, false, &PermanentError{Provider: "local", Reason: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return Response{}, false, &PermanentError{Provider: "local", Reason: "empty completion"}
	}

	return Response{
		Text:   strings.TrimSpace(parsed.Choices[0].Message.Content),
		Tokens: parsed.Usage.TotalTokens,
	}, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
