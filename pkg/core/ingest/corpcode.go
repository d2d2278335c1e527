package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Sangvierr/My-Lab/pkg/apperrors"
)

const (
	corpCodeTTL      = 24 * time.Hour
	corpDirectoryKey = "dart:corpcode:v1"
)

var (
	corpCodePattern  = regexp.MustCompile(`^\d{8}$`)
	stockCodePattern = regexp.MustCompile(`^\d{6}$`)
)

// CorpEntry is one company of the DART corp code directory (CORPCODE.xml).
type CorpEntry struct {
	CorpCode   string `xml:"corp_code"`
	CorpName   string `xml:"corp_name"`
	StockCode  string `xml:"stock_code"`
	ModifyDate string `xml:"modify_date"`
}

type corpDirectory struct {
	byName  map[string][]CorpEntry
	byStock map[string]CorpEntry
}

// CorpCode resolves a company name, a 6-digit stock code or an 8-digit corp
// code to the DART corp code. When several companies share a name, the listed
// one wins.
func (c *DARTClient) CorpCode(ctx context.Context, corp string) (string, error) {
	corp = strings.TrimSpace(corp)
	if corpCodePattern.MatchString(corp) {
		return corp, nil
	}

	dir, err := c.directory(ctx)
	if err != nil {
		return "", err
	}

	if stockCodePattern.MatchString(corp) {
		if e, ok := dir.byStock[corp]; ok {
			return e.CorpCode, nil
		}
	}

	entries := dir.byName[corp]
	if len(entries) == 0 {
		return "", fmt.Errorf("corp %q not found in DART corp code directory: %w", corp, apperrors.ErrNoData)
	}
	for _, e := range entries {
		if e.StockCode != "" {
			return e.CorpCode, nil
		}
	}
	return entries[0].CorpCode, nil
}

// directory returns the cached corp code directory, downloading it once per TTL.
func (c *DARTClient) directory(ctx context.Context) (*corpDirectory, error) {
	if v, ok := c.corpCodes.Get(corpDirectoryKey); ok {
		return v.(*corpDirectory), nil
	}

	c.corpMu.Lock()
	defer c.corpMu.Unlock()

	if v, ok := c.corpCodes.Get(corpDirectoryKey); ok {
		return v.(*corpDirectory), nil
	}

	body, err := c.get(ctx, "corpCode.xml", nil)
	if err != nil {
		return nil, err
	}
	entries, err := ParseCorpCodeArchive(body)
	if err != nil {
		return nil, err
	}

	dir := buildDirectory(entries)
	c.corpCodes.Set(corpDirectoryKey, dir, gocache.DefaultExpiration)
	return dir, nil
}

// ParseCorpCodeArchive reads the zipped CORPCODE.xml served by corpCode.xml.
func ParseCorpCodeArchive(data []byte) ([]CorpEntry, error) {
	xmlData, err := firstZipEntry(data, "CORPCODE.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to open corp code archive: %w", err)
	}

	var result struct {
		List []CorpEntry `xml:"list"`
	}
	if err := xml.Unmarshal(xmlData, &result); err != nil {
		return nil, fmt.Errorf("failed to parse CORPCODE.xml: %w", err)
	}

	for i := range result.List {
		result.List[i].CorpName = strings.TrimSpace(result.List[i].CorpName)
		result.List[i].StockCode = strings.TrimSpace(result.List[i].StockCode)
	}
	return result.List, nil
}

func buildDirectory(entries []CorpEntry) *corpDirectory {
	dir := &corpDirectory{
		byName:  make(map[string][]CorpEntry, len(entries)),
		byStock: make(map[string]CorpEntry),
	}
	for _, e := range entries {
		dir.byName[e.CorpName] = append(dir.byName[e.CorpName], e)
		if e.StockCode != "" {
			dir.byStock[e.StockCode] = e
		}
	}
	return dir
}

// firstZipEntry returns the named entry of a zip archive, or the first entry
// when name is empty or absent.
func firstZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("empty archive")
	}

	target := zr.File[0]
	for _, f := range zr.File {
		if name != "" && strings.EqualFold(f.Name, name) {
			target = f
			break
		}
	}

	rc, err := target.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
