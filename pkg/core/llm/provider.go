package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

// Provider names accepted by NewGenerator.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// GenerateRequest is one blocking text-generation call.
type GenerateRequest struct {
	Model  string
	Prompt string
	System string
	// JSONMode asks the backend for its structured/JSON response mode.
	JSONMode bool
}

// TextGenerator is the interface for all text-generation backends.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider string
	// BaseURL is the full /api/generate URL for Ollama and the API root for
	// OpenAI-compatible and Gemini endpoints.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// StatusError is a non-success HTTP response from a backend.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Code, truncate(e.Body, 200))
}

// Unwrap classifies every non-success response as ErrAnalysisUnavailable.
func (e *StatusError) Unwrap() error {
	return apperrors.ErrAnalysisUnavailable
}

// NewGenerator builds the backend named by cfg.Provider (default ollama).
func NewGenerator(ctx context.Context, cfg Config) (TextGenerator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		return NewOllamaGenerator(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg), nil
	case ProviderGemini:
		return NewGeminiGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
