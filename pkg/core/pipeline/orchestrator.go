// Package pipeline drives the per-company extract -> locate -> analyze
// sequence and collects the finished records into one batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/core/analysis"
	"github.com/Sangvierr/My-Lab/pkg/core/loader"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

// State is a step in one entity's processing.
type State string

const (
	StatePending          State = "PENDING"
	StateStatementFetched State = "STATEMENT_FETCHED"
	StateTextFetched      State = "TEXT_FETCHED"
	StateTextSkipped      State = "TEXT_SKIPPED"
	StateAnalyzed         State = "ANALYZED"
	StateAnalysisSkipped  State = "ANALYSIS_SKIPPED"
	StateEmitted          State = "EMITTED"
	StateSkipped          State = "SKIPPED"
)

// StatementExtractor produces the numeric part of a record.
type StatementExtractor interface {
	Extract(ctx context.Context, corpName string, year int, reportCode string) (*models.FinanceSummary, error)
}

// TextLocator produces the business-description excerpt.
type TextLocator interface {
	Locate(ctx context.Context, corpName string, since time.Time, kind string) (string, error)
}

// Analyzer turns an excerpt into summary/risk. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, excerpt string) analysis.Result
}

// Config holds the per-run knobs.
type Config struct {
	Year       int
	ReportCode string
	FilingKind string
	// Interval is the minimum gap between entities. Zero disables pacing.
	Interval time.Duration
}

// EntityOutcome is the explicit per-entity result of a run.
type EntityOutcome struct {
	Entity   models.CorporateEntity
	State    State
	Path     []State
	Reason   string
	Err      error
	Analysis analysis.Outcome
	Record   *models.FinanceSummary
}

func (o *EntityOutcome) advance(s State) {
	o.State = s
	o.Path = append(o.Path, s)
}

// RunReport is everything one run produced.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []models.FinanceSummary
	Outcomes   []EntityOutcome
}

// Emitted counts entities whose record made it into the batch.
func (r *RunReport) Emitted() int {
	return r.count(StateEmitted)
}

// Skipped counts entities excluded from the batch.
func (r *RunReport) Skipped() int {
	return r.count(StateSkipped)
}

func (r *RunReport) count(s State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == s {
			n++
		}
	}
	return n
}

// Orchestrator processes entities one at a time.
type Orchestrator struct {
	extractor StatementExtractor
	locator   TextLocator
	analyzer  Analyzer
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(extractor StatementExtractor, locator TextLocator, analyzer Analyzer, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.ReportCode == "" {
		cfg.ReportCode = models.ReportCodeAnnual
	}
	if cfg.FilingKind == "" {
		cfg.FilingKind = "A"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		extractor: extractor,
		locator:   locator,
		analyzer:  analyzer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes every entity sequentially. A failing entity is recorded and
// skipped; the run itself always completes. Cancelling ctx marks the entities
// not yet started as skipped.
func (o *Orchestrator) Run(ctx context.Context, entities []models.CorporateEntity) *RunReport {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := o.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Run started",
		zap.Int("entities", len(entities)),
		zap.Int("year", o.cfg.Year),
		zap.String("reprt_code", o.cfg.ReportCode))

	limit := rate.Inf
	if o.cfg.Interval > 0 {
		limit = rate.Every(o.cfg.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, entity := range entities {
		if err := limiter.Wait(ctx); err != nil {
			for _, rest := range entities[i:] {
				report.Outcomes = append(report.Outcomes, EntityOutcome{
					Entity: rest,
					State:  StateSkipped,
					Path:   []State{StatePending, StateSkipped},
					Reason: "run cancelled",
					Err:    err,
				})
			}
			logger.Warn("Run cancelled, remaining entities skipped", zap.Int("remaining", len(entities)-i), zap.Error(err))
			break
		}

		outcome := o.processEntity(ctx, entity, logger)
		if outcome.State == StateEmitted {
			report.Records = append(report.Records, *outcome.Record)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.FinishedAt = time.Now()
	logger.Info("Run finished",
		zap.Int("emitted", report.Emitted()),
		zap.Int("skipped", report.Skipped()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report
}

// RunAndLoad runs the batch and hands the records to l in one call.
func (o *Orchestrator) RunAndLoad(ctx context.Context, entities []models.CorporateEntity, l loader.Loader) (*RunReport, loader.LoadResult) {
	report := o.Run(ctx, entities)
	result := l.Load(ctx, report.Records)

	o.logger.Info("Load finished",
		zap.String("run_id", report.RunID),
		zap.Int("emitted", report.Emitted()),
		zap.Int("skipped", report.Skipped()),
		zap.Bool("no_op", result.NoOp),
		zap.Bool("load_ok", result.OK()),
		zap.Error(result.Err))
	return report, result
}

// ProcessEntity runs one entity through all stages.
func (o *Orchestrator) ProcessEntity(ctx context.Context, entity models.CorporateEntity) EntityOutcome {
	return o.processEntity(ctx, entity, o.logger)
}

func (o *Orchestrator) processEntity(ctx context.Context, entity models.CorporateEntity, logger *zap.Logger) (outcome EntityOutcome) {
	logger = logger.With(zap.String("corp_name", entity.Name))
	outcome = EntityOutcome{Entity: entity}
	outcome.advance(StatePending)

	defer func() {
		if r := recover(); r != nil {
			outcome.Record = nil
			outcome.Err = fmt.Errorf("panic while processing %s: %v", entity.Name, r)
			outcome.Reason = "unexpected error"
			outcome.advance(StateSkipped)
			logger.Error("Entity processing panicked", zap.Any("panic", r))
		}
	}()

	// 1. Structured statement
	summary, err := o.extractor.Extract(ctx, entity.Name, o.cfg.Year, o.cfg.ReportCode)
	if err != nil {
		return o.skip(outcome, err, "statement", logger)
	}
	outcome.advance(StateStatementFetched)
	logger.Info("Statement extracted",
		zap.String("corp_code", summary.CorpCode),
		zap.Int64("revenue", summary.Revenue),
		zap.Int64("operating_profit", summary.OperatingProfit),
		zap.Int64("net_income", summary.NetIncome))

	// 2. Disclosure text
	since := time.Date(o.cfg.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	excerpt, err := o.locator.Locate(ctx, entity.Name, since, o.cfg.FilingKind)
	switch {
	case errors.Is(err, apperrors.ErrNoData):
		outcome.Reason = "no filing found"
		outcome.advance(StateTextSkipped)
		logger.Warn("No business report, AI fields left at defaults", zap.Error(err))
	case err != nil:
		return o.skip(outcome, err, "disclosure", logger)
	case excerpt == "":
		outcome.Reason = "empty document"
		outcome.advance(StateTextSkipped)
		logger.Warn("Business report body is empty, AI fields left at defaults")
	default:
		outcome.advance(StateTextFetched)
	}

	// 3. AI analysis
	if outcome.State == StateTextFetched {
		res := o.analyzer.Analyze(ctx, excerpt)
		summary.ApplyAnalysis(res.Analysis)
		outcome.Analysis = res.Outcome
		outcome.advance(StateAnalyzed)
		logger.Info("Analysis stage done", zap.String("outcome", string(res.Outcome)))
	} else {
		outcome.advance(StateAnalysisSkipped)
	}

	// 4. Emit
	outcome.Record = summary
	outcome.advance(StateEmitted)
	logger.Info("Entity emitted")
	return outcome
}

func (o *Orchestrator) skip(outcome EntityOutcome, err error, stage string, logger *zap.Logger) EntityOutcome {
	outcome.advance(StateSkipped)
	if errors.Is(err, apperrors.ErrNoData) {
		outcome.Reason = "no statement data"
		logger.Warn("No statement data, entity skipped", zap.Error(err))
		return outcome
	}
	outcome.Reason = stage + " stage failed"
	outcome.Err = err
	logger.Error("Entity skipped", zap.String("stage", stage), zap.Error(err))
	return outcome
}
