package ingest

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

// legacyEncoding is assumed for bodies that declare nothing and are not UTF-8.
const legacyEncoding = "euc-kr"

var (
	zipMagic = []byte("PK\x03\x04")

	// Matches <?xml ... encoding="x"?> and <meta ... charset=x>.
	declaredEncoding = regexp.MustCompile(`(?i)(?:<\?xml[^>]*encoding|<meta[^>]*charset)\s*=\s*["']?([A-Za-z0-9._-]+)`)
)

// Document fetches the original filing body (markup-bearing XML) by receipt
// number. DART serves it as a zip; the main document is named after the
// receipt number and attachments follow it.
func (c *DARTClient) Document(ctx context.Context, rceptNo string) (string, error) {
	params := url.Values{}
	params.Set("rcept_no", rceptNo)

	body, err := c.get(ctx, "document.xml", params)
	if err != nil {
		return "", err
	}
	return ParseDocumentArchive(body, rceptNo)
}

// ParseDocumentArchive extracts the main document from a document.xml payload.
// A non-zip payload is DART's XML error envelope.
func ParseDocumentArchive(data []byte, rceptNo string) (string, error) {
	if !bytes.HasPrefix(data, zipMagic) {
		var envelope struct {
			Status  string `xml:"status"`
			Message string `xml:"message"`
		}
		if err := xml.Unmarshal(data, &envelope); err != nil {
			return "", fmt.Errorf("unexpected document.xml payload for %s: %w", rceptNo, apperrors.ErrSourceUnavailable)
		}
		if envelope.Status == StatusNoData {
			return "", nil
		}
		return "", statusError("document.xml", envelope.Status, envelope.Message)
	}

	doc, err := firstZipEntry(data, rceptNo+".xml")
	if err != nil {
		return "", fmt.Errorf("failed to open document archive %s: %w", rceptNo, err)
	}
	return DecodeBody(doc)
}

// DecodeBody converts a document body to UTF-8. Older filings are EUC-KR and
// say so in their XML declaration.
func DecodeBody(data []byte) (string, error) {
	label := ""
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := declaredEncoding.FindSubmatch(head); m != nil {
		label = strings.ToLower(string(m[1]))
	}

	switch {
	case label == "" && utf8.Valid(data):
		return string(data), nil
	case label == "utf-8" || label == "utf8":
		return string(data), nil
	case label == "":
		label = legacyEncoding
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unsupported document encoding %q: %w", label, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s document: %w", label, err)
	}
	return string(decoded), nil
}
