// Package loader delivers the finished batch of finance records downstream.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

const (
	DefaultBulkURL = "http://localhost:8090/api/finance/bulk"
	DefaultTimeout = 10 * time.Second
)

// Loader delivers one batch. Implementations never panic on failure; the
// result carries the error.
type Loader interface {
	Load(ctx context.Context, batch []models.FinanceSummary) LoadResult
}

// LoadResult reports the outcome of one delivery.
type LoadResult struct {
	// NoOp is set when the batch was empty and nothing was sent.
	NoOp       bool
	Records    int
	StatusCode int
	Err        error
}

// OK reports whether the batch was delivered (or there was nothing to deliver).
func (r LoadResult) OK() bool { return r.Err == nil }

// HTTPLoader POSTs the batch as one JSON array to the ingest service.
type HTTPLoader struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPLoader creates an HTTPLoader. A zero timeout means DefaultTimeout.
func NewHTTPLoader(url string, timeout time.Duration, logger *zap.Logger) *HTTPLoader {
	if url == "" {
		url = DefaultBulkURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPLoader{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ Loader = (*HTTPLoader)(nil)

// Load sends the batch in a single request. Only status 200 counts as success.
func (l *HTTPLoader) Load(ctx context.Context, batch []models.FinanceSummary) LoadResult {
	if len(batch) == 0 {
		l.logger.Info("Nothing to load, skipping bulk request")
		return LoadResult{NoOp: true}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return failed(len(batch), 0, fmt.Errorf("failed to marshal batch: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return failed(len(batch), 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Error("Bulk load request failed", zap.String("url", l.url), zap.Error(err))
		return failed(len(batch), 0, fmt.Errorf("bulk load request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		l.logger.Error("Bulk load rejected",
			zap.String("url", l.url),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return failed(len(batch), resp.StatusCode, fmt.Errorf("ingest service returned status %d", resp.StatusCode))
	}

	l.logger.Info("Bulk load complete", zap.Int("records", len(batch)))
	return LoadResult{Records: len(batch), StatusCode: resp.StatusCode}
}

func failed(records, status int, err error) LoadResult {
	return LoadResult{
		Records:    records,
		StatusCode: status,
		Err:        fmt.Errorf("%w: %w", apperrors.ErrLoadFailure, err),
	}
}
