package loader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
	"github.com/Sangvierr/My-Lab/pkg/models"
)

func sampleBatch() []models.FinanceSummary {
	s := models.NewFinanceSummary("삼성전자", 2023, models.ReportCodeAnnual)
	s.CorpCode = "00126380"
	s.Revenue = 258935494000000
	s.OperatingProfit = 6566976000000
	s.NetIncome = 15487100000000
	s.AISummary = "A"
	s.AIRisk = "B"
	return []models.FinanceSummary{*s}
}

func TestHTTPLoader_Success(t *testing.T) {
	var received []map[string]any
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := NewHTTPLoader(srv.URL, 0, zap.NewNop()).Load(context.Background(), sampleBatch())
	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Records)

	require.Len(t, received, 1)
	rec := received[0]
	assert.Equal(t, "삼성전자", rec["corpName"])
	assert.Equal(t, "2023", rec["year"])
	assert.Equal(t, "4Q", rec["quarter"])
	assert.Equal(t, "00126380", rec["corpCode"])
	assert.Equal(t, float64(258935494000000), rec["revenue"])
	assert.Equal(t, "A", rec["aiSummary"])
	assert.Equal(t, "B", rec["aiRisk"])
	assert.Contains(t, rec, "operatingProfit")
	assert.Contains(t, rec, "netIncome")
}

func TestHTTPLoader_EmptyBatchSendsNothing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	res := NewHTTPLoader(srv.URL, 0, nil).Load(context.Background(), nil)
	assert.True(t, res.NoOp)
	assert.True(t, res.OK())
	assert.Zero(t, calls)
}

func TestHTTPLoader_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := NewHTTPLoader(srv.URL, 0, nil).Load(context.Background(), sampleBatch())
	assert.False(t, res.OK())
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.True(t, errors.Is(res.Err, apperrors.ErrLoadFailure))
}

func TestHTTPLoader_OnlyStatus200IsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res := NewHTTPLoader(srv.URL, 0, nil).Load(context.Background(), sampleBatch())
	assert.True(t, errors.Is(res.Err, apperrors.ErrLoadFailure))
}

func TestHTTPLoader_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewHTTPLoader(url, 0, nil).Load(context.Background(), sampleBatch())
	assert.True(t, errors.Is(res.Err, apperrors.ErrLoadFailure))
	assert.Zero(t, res.StatusCode)
}
