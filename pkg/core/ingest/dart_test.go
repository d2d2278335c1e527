package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

const corpCodeXML = `<?xml version="1.0" encoding="UTF-8"?>
<result>
  <list>
    <corp_code>00126380</corp_code>
    <corp_name>삼성전자</corp_name>
    <stock_code>005930</stock_code>
    <modify_date>20230110</modify_date>
  </list>
  <list>
    <corp_code>00999999</corp_code>
    <corp_name>동명회사</corp_name>
    <stock_code> </stock_code>
    <modify_date>20200101</modify_date>
  </list>
  <list>
    <corp_code>00888888</corp_code>
    <corp_name>동명회사</corp_name>
    <stock_code>123456</stock_code>
    <modify_date>20210101</modify_date>
  </list>
</result>`

func zipOf(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// newDARTServer serves corpCode.xml plus the given JSON handlers.
func newDARTServer(t *testing.T, handlers map[string]http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var corpDownloads int32
	archive := zipOf(t, map[string]string{"CORPCODE.xml": corpCodeXML}, "CORPCODE.xml")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/corpCode.xml", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&corpDownloads, 1)
		assert.Equal(t, "test-key", r.URL.Query().Get("crtfc_key"))
		_, _ = w.Write(archive)
	})
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &corpDownloads
}

func TestCorpCode_Resolution(t *testing.T) {
	srv, downloads := newDARTServer(t, nil)
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))
	ctx := context.Background()

	code, err := client.CorpCode(ctx, "삼성전자")
	require.NoError(t, err)
	assert.Equal(t, "00126380", code)

	code, err = client.CorpCode(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, "00126380", code)

	code, err = client.CorpCode(ctx, "동명회사")
	require.NoError(t, err)
	assert.Equal(t, "00888888", code, "listed company should win on duplicate names")

	code, err = client.CorpCode(ctx, "00111111")
	require.NoError(t, err)
	assert.Equal(t, "00111111", code)

	_, err = client.CorpCode(ctx, "없는회사")
	assert.True(t, errors.Is(err, apperrors.ErrNoData))

	assert.Equal(t, int32(1), atomic.LoadInt32(downloads), "directory should be downloaded once")
}

func TestStatements(t *testing.T) {
	srv, _ := newDARTServer(t, map[string]http.HandlerFunc{
		"/api/fnlttMultiAcnt.json": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "00126380", q.Get("corp_code"))
			assert.Equal(t, "2023", q.Get("bsns_year"))
			assert.Equal(t, "11011", q.Get("reprt_code"))
			fmt.Fprint(w, `{"status":"000","message":"정상","list":[
				{"corp_code":"00126380","fs_div":"CFS","account_nm":"매출액","thstrm_amount":"258,935,494,000,000"},
				{"fs_div":"OFS","account_nm":"매출액","thstrm_amount":"170,374,090,000,000"}
			]}`)
		},
	})
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))

	rows, err := client.Statements(context.Background(), "삼성전자", 2023, "11011")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CFS", rows[0].FsDiv)
	assert.Equal(t, "258,935,494,000,000", rows[0].ThstrmAmount)
	assert.Equal(t, "00126380", rows[1].CorpCode, "missing corp_code is filled from the resolved code")
}

func TestStatements_NoData(t *testing.T) {
	srv, _ := newDARTServer(t, map[string]http.HandlerFunc{
		"/api/fnlttMultiAcnt.json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"013","message":"조회된 데이타가 없습니다."}`)
		},
	})
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))

	rows, err := client.Statements(context.Background(), "삼성전자", 2023, "11011")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStatements_StatusError(t *testing.T) {
	srv, _ := newDARTServer(t, map[string]http.HandlerFunc{
		"/api/fnlttMultiAcnt.json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"020","message":"요청 제한을 초과하였습니다."}`)
		},
	})
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))

	_, err := client.Statements(context.Background(), "삼성전자", 2023, "11011")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
}

func TestFilings_Paginates(t *testing.T) {
	srv, _ := newDARTServer(t, map[string]http.HandlerFunc{
		"/api/list.json": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "A", q.Get("pblntf_ty"))
			assert.Equal(t, "Y", q.Get("last_reprt_at"))
			assert.Equal(t, "20230101", q.Get("bgn_de"))
			switch q.Get("page_no") {
			case "1":
				fmt.Fprint(w, `{"status":"000","page_no":1,"total_page":2,"list":[
					{"report_nm":"사업보고서 (2023.12)","rcept_no":"20240312000736","rcept_dt":"20240312"}]}`)
			default:
				fmt.Fprint(w, `{"status":"000","page_no":2,"total_page":2,"list":[
					{"report_nm":"분기보고서 (2023.09)","rcept_no":"20231114002109","rcept_dt":"20231114"}]}`)
			}
		},
	})
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	filings, err := client.Filings(context.Background(), "삼성전자", start, "A", true)
	require.NoError(t, err)
	require.Len(t, filings, 2)
	assert.Equal(t, "20240312000736", filings[0].RceptNo)
	assert.Equal(t, "20231114002109", filings[1].RceptNo)
}

func TestDocument(t *testing.T) {
	rceptNo := "20240312000736"
	archive := zipOf(t, map[string]string{
		rceptNo + "_00760.xml": "<DOCUMENT>attachment</DOCUMENT>",
		rceptNo + ".xml":       "<DOCUMENT><BODY>II. 사업의 내용</BODY></DOCUMENT>",
	}, rceptNo+"_00760.xml", rceptNo+".xml")

	srv, _ := newDARTServer(t, map[string]http.HandlerFunc{
		"/api/document.xml": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, rceptNo, r.URL.Query().Get("rcept_no"))
			_, _ = w.Write(archive)
		},
	})
	client := NewDARTClient("test-key", WithBaseURL(srv.URL+"/api"))

	body, err := client.Document(context.Background(), rceptNo)
	require.NoError(t, err)
	assert.Contains(t, body, "사업의 내용")
}

func TestParseDocumentArchive_EUCKR(t *testing.T) {
	rceptNo := "20090331000123"
	encoded, err := korean.EUCKR.NewEncoder().String(
		`<?xml version="1.0" encoding="euc-kr"?><DOCUMENT><BODY>II. 사업의 내용</BODY></DOCUMENT>`)
	require.NoError(t, err)
	require.NotContains(t, encoded, "사업의 내용")

	body, err := ParseDocumentArchive(zipOf(t, map[string]string{rceptNo + ".xml": encoded}, rceptNo+".xml"), rceptNo)
	require.NoError(t, err)
	assert.Contains(t, body, "II. 사업의 내용")
}

func TestDecodeBody(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().String("<BODY>사업의 내용</BODY>")
	require.NoError(t, err)

	t.Run("undeclared legacy bytes", func(t *testing.T) {
		body, err := DecodeBody([]byte(encoded))
		require.NoError(t, err)
		assert.Equal(t, "<BODY>사업의 내용</BODY>", body)
	})

	t.Run("utf-8 passes through", func(t *testing.T) {
		body, err := DecodeBody([]byte(`<?xml version="1.0" encoding="UTF-8"?><BODY>사업</BODY>`))
		require.NoError(t, err)
		assert.Contains(t, body, "<BODY>사업</BODY>")
	})

	t.Run("meta charset", func(t *testing.T) {
		body, err := DecodeBody([]byte(`<meta http-equiv="Content-Type" content="text/html; charset=EUC-KR">` + encoded))
		require.NoError(t, err)
		assert.Contains(t, body, "사업의 내용")
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := DecodeBody([]byte(`<?xml version="1.0" encoding="klingon"?><a/>`))
		assert.Error(t, err)
	})
}

func TestParseDocumentArchive_ErrorEnvelope(t *testing.T) {
	_, err := ParseDocumentArchive([]byte(`<result><status>010</status><message>등록되지 않은 키입니다.</message></result>`), "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))

	body, err := ParseDocumentArchive([]byte(`<result><status>013</status><message>없음</message></result>`), "1")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestGet_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewDARTClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Statements(context.Background(), "00126380", 2023, "11011")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
}
