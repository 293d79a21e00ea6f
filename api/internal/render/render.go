// Package render turns recognized text into an HTML preview with MathML math.
package render

import (
	"bytes"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		treeblood.MathML(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Markdown would eat \( and \[ as escapes, so they become dollar delimiters.
var delimiters = strings.NewReplacer(
	`\(`, `$`,
	`\)`, `$`,
	`\[`, `$$`,
	`\]`, `$$`,
)

// Preview renders text as HTML. Raw HTML in the input is omitted.
func Preview(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(delimiters.Replace(text)), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
