package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/core/loader"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS finance_summary (
	corp_code        TEXT        NOT NULL,
	year             TEXT        NOT NULL,
	quarter          TEXT        NOT NULL,
	corp_name        TEXT        NOT NULL,
	revenue          BIGINT      NOT NULL,
	operating_profit BIGINT      NOT NULL,
	net_income       BIGINT      NOT NULL,
	ai_summary       TEXT        NOT NULL,
	ai_risk          TEXT        NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (corp_code, year, quarter)
);`

const upsertSQL = `
INSERT INTO finance_summary
	(corp_code, year, quarter, corp_name, revenue, operating_profit, net_income, ai_summary, ai_risk, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (corp_code, year, quarter)
DO UPDATE SET
	corp_name = EXCLUDED.corp_name,
	revenue = EXCLUDED.revenue,
	operating_profit = EXCLUDED.operating_profit,
	net_income = EXCLUDED.net_income,
	ai_summary = EXCLUDED.ai_summary,
	ai_risk = EXCLUDED.ai_risk,
	updated_at = EXCLUDED.updated_at;`

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// FinanceRepo writes finance records straight into Postgres. It is the
// database alternative to the HTTP bulk endpoint and is equally all-or-nothing.
type FinanceRepo struct {
	db     TxBeginner
	logger *zap.Logger
}

// NewFinanceRepo creates a repository. A nil db uses the pool from InitDB.
func NewFinanceRepo(db TxBeginner, logger *zap.Logger) *FinanceRepo {
	if db == nil {
		if p := GetPool(); p != nil {
			db = p
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceRepo{db: db, logger: logger}
}

var _ loader.Loader = (*FinanceRepo)(nil)

// EnsureSchema creates the finance_summary table if it does not exist.
func (r *FinanceRepo) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create finance_summary: %w", err)
	}
	return tx.Commit(ctx)
}

// Load upserts the whole batch in one transaction.
func (r *FinanceRepo) Load(ctx context.Context, batch []models.FinanceSummary) loader.LoadResult {
	if len(batch) == 0 {
		return loader.LoadResult{NoOp: true}
	}
	if r.db == nil {
		return r.failed(len(batch), fmt.Errorf("database pool not initialized"))
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.failed(len(batch), fmt.Errorf("failed to begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	for _, rec := range batch {
		b.Queue(upsertSQL, rowArgs(rec)...)
	}
	results := tx.SendBatch(ctx, b)
	for _, rec := range batch {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return r.failed(len(batch), fmt.Errorf("failed to upsert %s: %w", rec.CorpName, err))
		}
	}
	if err := results.Close(); err != nil {
		return r.failed(len(batch), fmt.Errorf("failed to close batch: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return r.failed(len(batch), fmt.Errorf("failed to commit: %w", err))
	}

	r.logger.Info("Finance records stored", zap.Int("records", len(batch)))
	return loader.LoadResult{Records: len(batch)}
}

func (r *FinanceRepo) failed(records int, err error) loader.LoadResult {
	r.logger.Error("Postgres load failed", zap.Error(err))
	return loader.LoadResult{
		Records: records,
		Err:     fmt.Errorf("%w: %w", apperrors.ErrLoadFailure, err),
	}
}

// rowArgs orders a record's fields to match upsertSQL's placeholders.
func rowArgs(s models.FinanceSummary) []any {
	return []any{
		s.CorpCode,
		s.Year,
		s.Quarter,
		s.CorpName,
		s.Revenue,
		s.OperatingProfit,
		s.NetIncome,
		s.AISummary,
		s.AIRisk,
	}
}
