package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultTimeout = 60 * time.Second
)

// Options configures an OpenAI-compatible chat completions endpoint.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client against an OpenAI-compatible chat
// completions API (Groq by default).
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a new extraction client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:   opts.APIKey,
		model:    model,
		endpoint: baseURL + "/chat/completions",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Extract sends the document to the model and returns the parsed fields.
// Provider-side failures are reported through the llm.ErrorKey marker;
// transport and decoding failures are returned as errors.
func (c *Client) Extract(ctx context.Context, doc llm.Document) (map[string]any, error) {
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       BuildMessages(doc),
		Temperature:    0,
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("extraction request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return map[string]any{llm.ErrorKey: fmt.Sprintf("extraction service returned %d", resp.StatusCode)}, nil
		}
		return nil, fmt.Errorf("extraction response parse: %w", err)
	}
	if parsed.Error != nil {
		return map[string]any{llm.ErrorKey: parsed.Error.Message}, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return map[string]any{llm.ErrorKey: fmt.Sprintf("extraction service returned %d", resp.StatusCode)}, nil
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("extraction response missing choices")
	}

	content := stripFences(parsed.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("extraction response empty content")
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("extraction response is not a JSON object: %w", err)
	}

	usage := map[string]any{
		"model":      c.model,
		"latency_ms": time.Since(start).Milliseconds(),
	}
	if parsed.Usage != nil {
		usage["prompt_tokens"] = parsed.Usage.PromptTokens
		usage["completion_tokens"] = parsed.Usage.CompletionTokens
		usage["total_tokens"] = parsed.Usage.TotalTokens
	}
	fields[llm.UsageKey] = usage
	logUsage(c.model, doc, usage)
	return fields, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func logUsage(model string, doc llm.Document, usage map[string]any) {
	fields := map[string]any{
		"model":        model,
		"content_type": doc.ContentType,
		"pdf_pages":    doc.Pages,
	}
	for k, v := range usage {
		fields[k] = v
	}
	telemetry.Info("llm.extract", fields)
}

var _ llm.Client = (*Client)(nil)
