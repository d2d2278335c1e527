package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractFencedJSON returns the body of the first fenced code block tagged
// json (or untagged) in a Markdown reply. Models often wrap JSON this way
// even when asked not to.
func ExtractFencedJSON(input string) (string, bool) {
	source := []byte(input)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		body  string
		found bool
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || found {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(block.Language(source)))
		if lang != "" && lang != "json" {
			return ast.WalkSkipChildren, nil
		}

		var sb strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		body = strings.TrimSpace(sb.String())
		found = true
		return ast.WalkStop, nil
	})

	if !found || body == "" {
		return "", false
	}
	return body, true
}
