package disclosure

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup converts a DART document body (XML/HTML) to plain text.
// Script, style and hidden elements are dropped and whitespace runs collapse
// to single spaces.
func StripMarkup(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse document markup: %w", err)
	}

	doc.Find("script, style").Remove()
	doc.Find("[hidden], [style*='display:none'], [style*='display: none']").Remove()

	// Block-level tags carry no separator in text nodes; pad them so adjacent
	// cells and paragraphs don't fuse into one word.
	doc.Find("p, br, div, tr, td, th, title, table, section-1, section-2, li").Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// CropStrategy cuts a bounded excerpt out of a plain-text document.
// anchored reports whether the excerpt starts at a located section.
type CropStrategy interface {
	Crop(text string) (excerpt string, anchored bool)
}

// KeywordWindow crops Size runes starting at the first occurrence of Keyword,
// or from the start of the text when the keyword is absent.
type KeywordWindow struct {
	Keyword string
	Size    int
}

// Crop implements CropStrategy.
func (k KeywordWindow) Crop(text string) (string, bool) {
	if k.Keyword != "" {
		if idx := strings.Index(text, k.Keyword); idx >= 0 {
			return firstRunes(text[idx:], k.Size), true
		}
	}
	return firstRunes(text, k.Size), false
}

// firstRunes returns at most n runes of s. n <= 0 means no limit.
func firstRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
