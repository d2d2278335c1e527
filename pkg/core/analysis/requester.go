// Package analysis asks a text generator for a structured business summary
// of a disclosure excerpt and turns whatever comes back into a models.AIAnalysis.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/core/llm"
	"github.com/Sangvierr/My-Lab/pkg/core/prompt"
	"github.com/Sangvierr/My-Lab/pkg/core/utils"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

const (
	DefaultTimeout = 120 * time.Second
	// FallbackRunes is how much of an unparseable reply is kept as the summary.
	FallbackRunes = 500
)

// Outcome classifies one Analyze call.
type Outcome string

const (
	OutcomeAnalyzed      Outcome = "analyzed"
	OutcomeParseFallback Outcome = "parse_fallback"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeSkipped       Outcome = "skipped"
)

// Result is the analysis applied to the record plus how it was obtained.
type Result struct {
	Analysis models.AIAnalysis
	Outcome  Outcome
	Err      error
}

// Options configures a Requester.
type Options struct {
	Model    string
	Timeout  time.Duration
	PromptID string
	Registry *prompt.Registry
}

// Requester renders the analysis prompt and calls the generator once.
type Requester struct {
	generator llm.TextGenerator
	model     string
	timeout   time.Duration
	promptID  string
	registry  *prompt.Registry
	logger    *zap.Logger
}

// NewRequester creates a Requester. Zero options fall back to defaults.
func NewRequester(generator llm.TextGenerator, opts Options, logger *zap.Logger) *Requester {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PromptID == "" {
		opts.PromptID = prompt.BusinessSummaryID
	}
	if opts.Registry == nil {
		opts.Registry = prompt.Get()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requester{
		generator: generator,
		model:     opts.Model,
		timeout:   opts.Timeout,
		promptID:  opts.PromptID,
		registry:  opts.Registry,
		logger:    logger,
	}
}

// Analyze never fails: every problem is folded into the returned Result.
// An empty excerpt is not sent.
func (r *Requester) Analyze(ctx context.Context, excerpt string) Result {
	if strings.TrimSpace(excerpt) == "" {
		return Result{Analysis: models.DefaultAIAnalysis(), Outcome: OutcomeSkipped}
	}

	system, user, err := r.render(excerpt)
	if err != nil {
		r.logger.Error("Failed to render analysis prompt", zap.String("prompt_id", r.promptID), zap.Error(err))
		return Result{Analysis: models.DefaultAIAnalysis(), Outcome: OutcomeUnavailable, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	raw, err := r.generator.Generate(callCtx, llm.GenerateRequest{
		Model:    r.model,
		Prompt:   user,
		System:   system,
		JSONMode: true,
	})
	if err != nil {
		r.logger.Warn("AI backend unavailable",
			zap.String("provider", r.generator.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if !errors.Is(err, apperrors.ErrAnalysisUnavailable) {
			err = fmt.Errorf("%w: %w", apperrors.ErrAnalysisUnavailable, err)
		}
		return Result{Analysis: models.DefaultAIAnalysis(), Outcome: OutcomeUnavailable, Err: err}
	}

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		r.logger.Warn("AI reply is not the expected JSON, keeping raw prefix",
			zap.Int("reply_len", len(raw)),
			zap.Error(err))
		return Result{Analysis: FallbackAnalysis(raw), Outcome: OutcomeParseFallback, Err: err}
	}

	r.logger.Info("AI analysis complete",
		zap.String("provider", r.generator.Name()),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Analysis: analysis, Outcome: OutcomeAnalyzed}
}

func (r *Requester) render(excerpt string) (system, user string, err error) {
	pt, err := r.registry.GetPrompt(r.promptID)
	if err != nil {
		return "", "", err
	}
	user, err = prompt.RenderUserPrompt(pt, prompt.NewContext().Set("Excerpt", excerpt))
	if err != nil {
		return "", "", err
	}
	return pt.SystemPrompt, user, nil
}

// ParseAnalysis decodes a model reply into summary/risk. A reply that carries
// neither key is an apperrors.ErrAIParse; a single missing or empty key is
// replaced with models.FieldMissingText. Models sometimes answer with a list
// or a number instead of a string, so non-string values are stringified.
func ParseAnalysis(raw string) (models.AIAnalysis, error) {
	var parsed map[string]any
	if _, err := utils.SmartParse(strings.TrimSpace(raw), &parsed); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("%w: %v", apperrors.ErrAIParse, err)
	}
	summary, hasSummary := parsed["summary"]
	risk, hasRisk := parsed["risk"]
	if !hasSummary && !hasRisk {
		return models.AIAnalysis{}, fmt.Errorf("%w: reply has neither summary nor risk", apperrors.ErrAIParse)
	}
	return models.AIAnalysis{
		Summary: orMissing(stringify(summary)),
		Risk:    orMissing(stringify(risk)),
	}, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// FallbackAnalysis keeps the first FallbackRunes runes of an unparseable reply.
func FallbackAnalysis(raw string) models.AIAnalysis {
	summary := strings.TrimSpace(raw)
	if summary == "" {
		summary = models.FieldMissingText
	}
	if runes := []rune(summary); len(runes) > FallbackRunes {
		summary = string(runes[:FallbackRunes])
	}
	return models.AIAnalysis{Summary: summary, Risk: models.ParseFailedRisk}
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.FieldMissingText
	}
	return s
}
