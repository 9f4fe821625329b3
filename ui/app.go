package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"kpidash/domain/core"
	"kpidash/internal/filters"
	"kpidash/internal/helpers"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// parseTemplates loads the embedded page templates with the dashboard helpers
func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"num": func(v float64) string { return helpers.FormatNumber(v, 2) },
		"int": func(v float64) string { return helpers.FormatNumber(v, 0) },
		"dateValue": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format(core.DateLayout)
		},
		"floatValue": func(f *float64) string {
			if f == nil {
				return ""
			}
			return fmt.Sprintf("%g", *f)
		},
		"isSelected": func(state filters.State, column, value string) bool {
			return len(state.Categories[column]) > 0 && state.Selected(column, value)
		},
		"paramName": func(column string) string { return filters.CategoryPrefix + column },
		"chartURL": func(name, query string) template.URL {
			if query == "" {
				return template.URL("/charts/" + url.PathEscape(name))
			}
			return template.URL("/charts/" + url.PathEscape(name) + "?" + query)
		},
		"css": func(s string) template.CSS { return template.CSS(s) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
}
