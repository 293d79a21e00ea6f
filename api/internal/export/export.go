// Package export renders the answer ledger as a standalone HTML page with
// MathJax, ready to be offered as a download.
//
// Escaping: answer and question text are HTML-escaped (<, >, &, ', " and NUL)
// before being placed in the page; line breaks in the question text then become
// <br/>. Math delimiters ($...$, \(...\)) are plain text and pass through.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"quiz-ocr/api/internal/answers"
)

const NotAvailable = "N/A"

var ErrExport = errors.New("export failed")

var page = template.Must(template.New("answers").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Saved Answers</title>
<script src="https://polyfill.io/v3/polyfill.min.js?features=es6"></script>
<script>
window.MathJax = {
  tex: {
    inlineMath: [['$', '$'], ['\\(', '\\)']]
  },
  svg: {
    fontCache: 'global'
  }
};
</script>
<script id="MathJax-script" async src="https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"></script>
</head>
<body>
<h2>Saved Answers and OCR Text</h2>
{{range .}}<h3>Question {{.Number}}</h3>
<p><strong>Answer:</strong> {{.Answer}}</p>
<p><strong>Question:</strong> {{.Question}}</p>
{{end}}</body>
</html>
`))

type block struct {
	Number   int
	Answer   template.HTML
	Question template.HTML
}

// Document is one generated export.
type Document struct {
	Filename string
	HTML     []byte
}

func (d Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.HTML)
}

// Href is a data URI carrying the whole document.
func (d Document) Href() string {
	return "data:text/html;base64," + d.Base64()
}

// Link is an anchor that downloads the document under its filename.
func (d Document) Link(label string) string {
	return `<a href="` + d.Href() + `" download="` + template.HTMLEscapeString(d.Filename) + `">` +
		template.HTMLEscapeString(label) + `</a>`
}

// Filename names an export after the day it was built.
func Filename(now time.Time) string {
	return now.Format("2006-01-02") + ".html"
}

// Build renders every slot of l, empty ones included, in index order.
func Build(l *answers.Ledger, now time.Time) (Document, error) {
	slots := l.Slots()
	blocks := make([]block, 0, len(slots))
	for _, s := range slots {
		b := block{
			Number:   s.Index + 1,
			Answer:   NotAvailable,
			Question: NotAvailable,
		}
		if s.Record != nil {
			b.Answer = escape(s.Record.Answer)
			b.Question = withBreaks(s.Record.Recognized)
		}
		blocks = append(blocks, b)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, blocks); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrExport, err)
	}
	return Document{Filename: Filename(now), HTML: buf.Bytes()}, nil
}

func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

func withBreaks(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br/>"))
}
