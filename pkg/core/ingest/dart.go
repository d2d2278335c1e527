// Package ingest provides OpenDART API integration for fetching statements,
// filing indexes and filing documents.
// API Documentation: https://opendart.fss.or.kr/guide/main.do
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

const (
	DefaultBaseURL = "https://opendart.fss.or.kr/api"

	// DART result status codes
	StatusOK     = "000"
	StatusNoData = "013"

	dateLayout = "20060102"
)

// =============================================================================
// DART DATA TYPES
// =============================================================================

// StatementRow is one account line of the multi-company key accounts API
// (fnlttMultiAcnt.json).
type StatementRow struct {
	RceptNo         string `json:"rcept_no"`
	BsnsYear        string `json:"bsns_year"`
	CorpCode        string `json:"corp_code"`
	StockCode       string `json:"stock_code"`
	ReprtCode       string `json:"reprt_code"`
	AccountNm       string `json:"account_nm"`
	FsDiv           string `json:"fs_div"` // "CFS" consolidated, "OFS" separate
	FsNm            string `json:"fs_nm"`
	SjDiv           string `json:"sj_div"` // "BS", "IS"
	SjNm            string `json:"sj_nm"`
	ThstrmNm        string `json:"thstrm_nm"`
	ThstrmDt        string `json:"thstrm_dt"`
	ThstrmAmount    string `json:"thstrm_amount"`
	FrmtrmAmount    string `json:"frmtrm_amount"`
	BfefrmtrmAmount string `json:"bfefrmtrm_amount"`
	Ord             string `json:"ord"`
	Currency        string `json:"currency"`
}

// Filing is one entry of the disclosure search API (list.json).
type Filing struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	CorpCls   string `json:"corp_cls"`
	ReportNm  string `json:"report_nm"`
	RceptNo   string `json:"rcept_no"`
	FlrNm     string `json:"flr_nm"`
	RceptDt   string `json:"rcept_dt"` // YYYYMMDD
	Rm        string `json:"rm"`
}

type statementResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	List    []StatementRow `json:"list"`
}

type filingResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	PageNo     int      `json:"page_no"`
	PageCount  int      `json:"page_count"`
	TotalCount int      `json:"total_count"`
	TotalPage  int      `json:"total_page"`
	List       []Filing `json:"list"`
}

// =============================================================================
// DART CLIENT
// =============================================================================

// DARTClient handles OpenDART API requests.
type DARTClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	corpCodes *gocache.Cache
	corpMu    sync.Mutex
}

// ClientOption customizes a DARTClient.
type ClientOption func(*DARTClient)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *DARTClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *DARTClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewDARTClient creates a new OpenDART API client.
func NewDARTClient(apiKey string, opts ...ClientOption) *DARTClient {
	c := &DARTClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		corpCodes: gocache.New(corpCodeTTL, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statements returns the key account rows of a company for one business year
// and report code. An empty slice means DART has no data for the combination.
func (c *DARTClient) Statements(ctx context.Context, corpName string, year int, reportCode string) ([]StatementRow, error) {
	corpCode, err := c.CorpCode(ctx, corpName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bsns_year", strconv.Itoa(year))
	params.Set("reprt_code", reportCode)

	var resp statementResponse
	if err := c.getJSON(ctx, "fnlttMultiAcnt.json", params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case StatusOK:
	case StatusNoData:
		return nil, nil
	default:
		return nil, statusError("fnlttMultiAcnt.json", resp.Status, resp.Message)
	}

	// The key accounts API omits corp_code on some rows.
	for i := range resp.List {
		if resp.List[i].CorpCode == "" {
			resp.List[i].CorpCode = corpCode
		}
	}
	return resp.List, nil
}

// Filings searches the disclosure index of a company from start until today.
//
// kind: DART pblntf_ty ("A" periodic reports, "B" major events, ...).
// final: restrict to final versions (last_reprt_at=Y), excluding superseded
// and amended originals.
func (c *DARTClient) Filings(ctx context.Context, corpName string, start time.Time, kind string, final bool) ([]Filing, error) {
	corpCode, err := c.CorpCode(ctx, corpName)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("corp_code", corpCode)
	params.Set("bgn_de", start.Format(dateLayout))
	params.Set("end_de", time.Now().Format(dateLayout))
	params.Set("page_count", "100")
	if kind != "" {
		params.Set("pblntf_ty", kind)
	}
	if final {
		params.Set("last_reprt_at", "Y")
	}

	var filings []Filing
	for page := 1; ; page++ {
		params.Set("page_no", strconv.Itoa(page))

		var resp filingResponse
		if err := c.getJSON(ctx, "list.json", params, &resp); err != nil {
			return nil, err
		}

		switch resp.Status {
		case StatusOK:
		case StatusNoData:
			return filings, nil
		default:
			return nil, statusError("list.json", resp.Status, resp.Message)
		}

		filings = append(filings, resp.List...)
		if page >= resp.TotalPage {
			return filings, nil
		}
	}
}

// getJSON issues a GET against the API root and decodes the JSON body.
func (c *DARTClient) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse DART %s response: %w: %w", endpoint, apperrors.ErrSourceUnavailable, err)
	}
	return nil
}

func (c *DARTClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("crtfc_key", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DART %s request failed: %w: %w", endpoint, apperrors.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DART %s returned status %d: %w", endpoint, resp.StatusCode, apperrors.ErrSourceUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read DART %s response: %w: %w", endpoint, apperrors.ErrSourceUnavailable, err)
	}
	return body, nil
}

func statusError(endpoint, status, message string) error {
	return fmt.Errorf("DART %s status %s (%s): %w", endpoint, status, message, apperrors.ErrSourceUnavailable)
}
