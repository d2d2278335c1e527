// Package statement maps DART key-account rows onto a FinanceSummary.
package statement

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/core/ingest"
	"github.com/Sangvierr/My-Lab/pkg/core/money"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

// Consolidation basis tags (fs_div).
const (
	BasisConsolidated = "CFS"
	BasisSeparate     = "OFS"
)

// StatementSource returns the key account rows of a company.
type StatementSource interface {
	Statements(ctx context.Context, corpName string, year int, reportCode string) ([]ingest.StatementRow, error)
}

// Extractor builds the structured half of a FinanceSummary.
type Extractor struct {
	source StatementSource
	table  *AccountTable
	basis  string
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil table uses the embedded default,
// an empty basis means consolidated.
func NewExtractor(source StatementSource, table *AccountTable, basis string, logger *zap.Logger) *Extractor {
	if table == nil {
		table = DefaultAccountTable()
	}
	if basis == "" {
		basis = BasisConsolidated
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, table: table, basis: basis, logger: logger}
}

// Extract queries the statement rows and fills revenue, operating profit and
// net income. It returns apperrors.ErrNoData when the query yields no rows.
//
// Rows of another consolidation basis are ignored. When several rows map to the
// same field the last one wins. A row whose amount cannot be parsed is logged
// and skipped.
func (e *Extractor) Extract(ctx context.Context, corpName string, year int, reportCode string) (*models.FinanceSummary, error) {
	rows, err := e.source.Statements(ctx, corpName, year, reportCode)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statements for %s: %w", corpName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no statement rows for %s (%d, %s): %w", corpName, year, reportCode, apperrors.ErrNoData)
	}

	summary := models.NewFinanceSummary(corpName, year, reportCode)
	summary.CorpCode = rows[0].CorpCode

	matched := 0
	for _, row := range rows {
		if row.FsDiv != e.basis {
			continue
		}
		field, ok := e.table.Lookup(row.AccountNm)
		if !ok {
			continue
		}

		amount, err := money.Normalize(row.ThstrmAmount)
		if err != nil {
			e.logger.Warn("Skipping unparseable amount",
				zap.String("corp_name", corpName),
				zap.String("account_nm", row.AccountNm),
				zap.String("amount", row.ThstrmAmount),
				zap.Error(err))
			continue
		}

		Assign(summary, field, amount)
		matched++
	}

	e.logger.Debug("Statement rows mapped",
		zap.String("corp_name", corpName),
		zap.Int("rows", len(rows)),
		zap.Int("matched", matched),
		zap.String("basis", e.basis))

	return summary, nil
}
