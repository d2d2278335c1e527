package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

const DefaultOllamaURL = "http://localhost:11434/api/generate"

// OllamaGenerator calls Ollama's native /api/generate endpoint.
type OllamaGenerator struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

var _ TextGenerator = (*OllamaGenerator)(nil)

// NewOllamaGenerator creates an Ollama backend.
func NewOllamaGenerator(cfg Config) *OllamaGenerator {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = DefaultOllamaURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second // local models are slow to load
	}
	return &OllamaGenerator{
		endpoint:   endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *OllamaGenerator) Name() string { return ProviderOllama }

// Generate sends a non-streaming generate request and returns the response text.
func (g *OllamaGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	if model == "" {
		return "", fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b)")
	}

	apiReq := ollamaRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.JSONMode {
		apiReq.Format = "json"
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w: %w", apperrors.ErrSourceUnavailable, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w: %w", apperrors.ErrSourceUnavailable, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", &StatusError{Provider: ProviderOllama, Code: httpResp.StatusCode, Body: string(respBody)}
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal ollama response: %w: %w", apperrors.ErrAnalysisUnavailable, err)
	}
	return resp.Response, nil
}
