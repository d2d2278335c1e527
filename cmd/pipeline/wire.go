package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/config"
	"github.com/Sangvierr/My-Lab/pkg/core/analysis"
	"github.com/Sangvierr/My-Lab/pkg/core/disclosure"
	"github.com/Sangvierr/My-Lab/pkg/core/ingest"
	"github.com/Sangvierr/My-Lab/pkg/core/llm"
	"github.com/Sangvierr/My-Lab/pkg/core/loader"
	"github.com/Sangvierr/My-Lab/pkg/core/pipeline"
	"github.com/Sangvierr/My-Lab/pkg/core/prompt"
	"github.com/Sangvierr/My-Lab/pkg/core/statement"
	"github.com/Sangvierr/My-Lab/pkg/core/store"
)

func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Orchestrator, error) {
	client := ingest.NewDARTClient(cfg.DART.APIKey,
		ingest.WithBaseURL(cfg.DART.BaseURL),
		ingest.WithTimeout(cfg.DART.Timeout),
	)

	table := statement.DefaultAccountTable()
	if cfg.Pipeline.AccountTable != "" {
		var err error
		if table, err = statement.LoadAccountTable(cfg.Pipeline.AccountTable); err != nil {
			return nil, err
		}
	}
	logger.Debug("Account table loaded",
		zap.Strings(string(statement.FieldRevenue), table.Synonyms(statement.FieldRevenue)),
		zap.Strings(string(statement.FieldOperatingProfit), table.Synonyms(statement.FieldOperatingProfit)),
		zap.Strings(string(statement.FieldNetIncome), table.Synonyms(statement.FieldNetIncome)),
	)
	extractor := statement.NewExtractor(client, table, cfg.Pipeline.Basis, logger.Named("statement"))

	locator := disclosure.NewLocator(client, disclosure.Options{
		ReportKeyword: cfg.Pipeline.ReportKeyword,
		Strategy: disclosure.KeywordWindow{
			Keyword: cfg.Pipeline.SectionKeyword,
			Size:    cfg.Pipeline.WindowSize,
		},
	}, logger.Named("disclosure"))

	generator, err := buildGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := prompt.Get()
	if cfg.LLM.PromptDir != "" {
		if err := prompt.LoadFromDirectory(registry, cfg.LLM.PromptDir); err != nil {
			return nil, err
		}
	}
	logger.Debug("Prompts registered", zap.Strings("ids", registry.ListPrompts()))
	requester := analysis.NewRequester(generator, analysis.Options{
		Model:    cfg.LLM.ResolvedModel(),
		Timeout:  cfg.LLM.Timeout,
		Registry: registry,
	}, logger.Named("analysis"))

	return pipeline.NewOrchestrator(extractor, locator, requester, pipeline.Config{
		Year:       cfg.Pipeline.Year,
		ReportCode: cfg.Pipeline.ReportCode,
		FilingKind: cfg.Pipeline.FilingKind,
		Interval:   cfg.Pipeline.Interval,
	}, logger.Named("pipeline")), nil
}

func buildGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	return llm.NewGenerator(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.GeneratorURL(),
		APIKey:   cfg.LLM.GeneratorKey(),
		Model:    cfg.LLM.ResolvedModel(),
		Timeout:  cfg.LLM.Timeout,
	})
}

// buildLoader returns the configured sink and a function releasing its resources.
func buildLoader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (loader.Loader, func(), error) {
	switch cfg.Sink.Kind {
	case "postgres":
		if err := store.InitDB(ctx, cfg.Sink.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		dbPool := store.GetPool()
		if dbPool == nil {
			return nil, nil, fmt.Errorf("database pool not initialized")
		}
		repo := store.NewFinanceRepo(dbPool, logger.Named("store"))
		if err := repo.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return repo, store.Close, nil
	default:
		return loader.NewHTTPLoader(cfg.Sink.BulkURL, cfg.Sink.Timeout, logger.Named("loader")), func() {}, nil
	}
}
