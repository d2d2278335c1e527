// Package disclosure finds the latest business report of a company and cuts
// the business-description section out of it.
package disclosure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/core/ingest"
)

const (
	DefaultReportKeyword  = "사업보고서"
	DefaultSectionKeyword = "사업의 내용"
	DefaultWindowSize     = 2000
)

// FilingSource is the DART filing index and document store.
type FilingSource interface {
	Filings(ctx context.Context, corpName string, start time.Time, kind string, final bool) ([]ingest.Filing, error)
	Document(ctx context.Context, rceptNo string) (string, error)
}

// Options configures a Locator. Zero values fall back to the defaults above.
type Options struct {
	ReportKeyword string
	Strategy      CropStrategy
}

// Locator implements the filing search -> document -> excerpt chain.
type Locator struct {
	source        FilingSource
	reportKeyword string
	strategy      CropStrategy
	logger        *zap.Logger
}

// NewLocator creates a Locator.
func NewLocator(source FilingSource, opts Options, logger *zap.Logger) *Locator {
	if opts.ReportKeyword == "" {
		opts.ReportKeyword = DefaultReportKeyword
	}
	if opts.Strategy == nil {
		opts.Strategy = KeywordWindow{Keyword: DefaultSectionKeyword, Size: DefaultWindowSize}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		source:        source,
		reportKeyword: opts.ReportKeyword,
		strategy:      opts.Strategy,
		logger:        logger,
	}
}

// Locate returns the business-description excerpt of the most recent final
// filing of the given kind filed on or after since. It returns
// apperrors.ErrNoData when no matching filing exists and an empty string when
// the document body is empty.
func (l *Locator) Locate(ctx context.Context, corpName string, since time.Time, kind string) (string, error) {
	filings, err := l.source.Filings(ctx, corpName, since, kind, true)
	if err != nil {
		return "", fmt.Errorf("failed to search filings for %s: %w", corpName, err)
	}
	if len(filings) == 0 {
		return "", fmt.Errorf("no %s filings for %s since %s: %w", kind, corpName, since.Format("2006-01-02"), apperrors.ErrNoData)
	}

	filing, ok := SelectFiling(filings, l.reportKeyword)
	if !ok {
		return "", fmt.Errorf("no filing named %q among %d filings for %s: %w", l.reportKeyword, len(filings), corpName, apperrors.ErrNoData)
	}
	l.logger.Info("Filing selected",
		zap.String("corp_name", corpName),
		zap.String("rcept_no", filing.RceptNo),
		zap.String("report_nm", filing.ReportNm))

	body, err := l.source.Document(ctx, filing.RceptNo)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document %s: %w", filing.RceptNo, err)
	}
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	text, err := StripMarkup(body)
	if err != nil {
		return "", err
	}

	excerpt, anchored := l.strategy.Crop(text)
	if !anchored {
		l.logger.Warn("Section keyword not found, using document head",
			zap.String("corp_name", corpName),
			zap.String("rcept_no", filing.RceptNo))
	}
	return excerpt, nil
}

// SelectFiling picks the most recent filing whose report name contains keyword.
// Recency is the receipt date, then the receipt number.
func SelectFiling(filings []ingest.Filing, keyword string) (ingest.Filing, bool) {
	var candidates []ingest.Filing
	for _, f := range filings {
		if strings.Contains(f.ReportNm, keyword) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return ingest.Filing{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RceptDt != candidates[j].RceptDt {
			return candidates[i].RceptDt > candidates[j].RceptDt
		}
		return candidates[i].RceptNo > candidates[j].RceptNo
	})
	return candidates[0], true
}
