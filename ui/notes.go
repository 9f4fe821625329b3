package ui

import (
	"html/template"
	"os"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown turns notes into HTML. Raw HTML in the source is dropped.
func RenderMarkdown(source []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	return template.HTML(markdown.ToHTML(source, p, renderer))
}

// loadNotes reads and renders the notes file; an empty path means no notes
func loadNotes(path string) (template.HTML, error) {
	if path == "" {
		return "", nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return RenderMarkdown(source), nil
}
