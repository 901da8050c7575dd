package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/qreviewer/qrev/internal/config"
)

const (
	defaultInferenceURL  = "https://api.anthropic.com/v1/messages"
	inferenceAPIVersion  = "2023-06-01"
	defaultInferenceName = "inference"
)

// Inference is a backend for a hosted model behind a messages-style API:
// system prompt as a top-level field, user content as a message, response
// text in typed content blocks.
type Inference struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

// NewInference creates a managed-inference backend from its configuration.
func NewInference(cfg config.BackendConfig) (*Inference, error) {
	name := cfg.Name
	if name == "" {
		name = defaultInferenceName
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "ANTHROPIC_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s environment variable is not set", keyEnv)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultInferenceURL
	}
	return &Inference{
		name:     name,
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   key,
		timeout:  cfg.Timeout(),
		client:   &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

func (a *Inference) Name() string { return a.name }

func (a *Inference) Timeout() time.Duration { return a.timeout }

func (a *Inference) Submit(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	body := inferenceRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    SystemPrompt(),
		Messages: []inferenceMessage{
			{Role: "user", Content: BuildUserPrompt(req)},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, &PermanentError{Reason: "marshaling request", Err: err}
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, &PermanentError{Reason: "creating request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", inferenceAPIVersion)

	httpResp, err := a.client.Do(httpReq)
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

	var result inferenceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, &MalformedError{Reason: fmt.Sprintf("parsing response: %v", err)}
	}

	var content string
	for _, block := range result.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return Response{}, &MalformedError{Reason: "no text blocks in API response"}
	}

	return Response{
		Backend: a.name,
		Content: content,
		Latency: time.Since(start),
	}, nil
}

type inferenceRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []inferenceMessage `json:"messages"`
}

type inferenceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type inferenceResponse struct {
	Content []inferenceBlock `json:"content"`
}

type inferenceBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
