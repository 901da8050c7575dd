package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/qreviewer/qrev/internal/config"
)

// HTTP is a backend calling a configured OpenAI-compatible chat endpoint.
type HTTP struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTP creates an HTTP backend from its configuration.
func NewHTTP(cfg config.BackendConfig) (*HTTP, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http backend requires an endpoint")
	}
	name := cfg.Name
	if name == "" {
		name = "http"
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%s environment variable is not set", cfg.APIKeyEnv)
		}
	}
	return &HTTP{
		name:     name,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		apiKey:   key,
		timeout:  cfg.Timeout(),
		client:   &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

func (h *HTTP) Name() string { return h.name }

func (h *HTTP) Timeout() time.Duration { return h.timeout }

func (h *HTTP) Submit(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	body := chatRequest{
		Model: h.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: BuildUserPrompt(req)},
		},
		MaxTokens: maxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, &PermanentError{Reason: "marshaling request", Err: err}
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, &PermanentError{Reason: "creating request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "qrev/0.1")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, &TransientError{Reason: "request timed out", Err: ctx.Err()}
		}
		return Response{}, &TransientError{Reason: "sending request", Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, &TransientError{Reason: "reading response", Err: err}
	}

	if err := classifyStatus(httpResp.StatusCode, respBody); err != nil {
		return Response{}, err
	}

	content, err := extractContent(respBody)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Backend: h.name,
		Content: content,
		Latency: time.Since(start),
	}, nil
}

// classifyStatus maps an HTTP status to the error taxonomy. 2xx is nil.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == 200:
		return nil
	case status == 429:
		return &TransientError{Reason: "rate limited"}
	case status == 401 || status == 403:
		return &PermanentError{Reason: "authentication error: " + string(body), Auth: true}
	case status >= 500:
		return &TransientError{Reason: fmt.Sprintf("server error (status %d): %s", status, body)}
	default:
		return &PermanentError{Reason: fmt.Sprintf("API error (status %d): %s", status, body)}
	}
}

// extractContent pulls the text content out of the response body. Hosted
// endpoints differ: OpenAI-compatible servers use choices[].message.content,
// others return a bare "content" or "response" field.
func extractContent(body []byte) (string, error) {
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Content  string `json:"content"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &MalformedError{Reason: fmt.Sprintf("parsing response: %v", err)}
	}
	switch {
	case len(result.Choices) > 0 && result.Choices[0].Message.Content != "":
		return result.Choices[0].Message.Content, nil
	case result.Content != "":
		return result.Content, nil
	case result.Response != "":
		return result.Response, nil
	default:
		return "", &MalformedError{Reason: "empty text content in API response"}
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
