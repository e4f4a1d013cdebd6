package templates

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/mealdesk/mealdesk/internal/dashboard"
	"github.com/mergestat/timediff"
)

//go:embed pages/*.html
var pagesFS embed.FS

// Parse parses all embedded pages. Every page is addressed by its file name.
func Parse(currencySymbol string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(Funcs(currencySymbol)).ParseFS(pagesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

// Funcs returns the helpers available in every page.
func Funcs(currencySymbol string) template.FuncMap {
	return template.FuncMap{
		"amount": func(v int) string {
			return dashboard.FormatAmount(currencySymbol, v)
		},
		"total":        dashboard.FormatTotal,
		"mealIcon":     MealIcon,
		"relativeTime": FormatRelativeTime,
		"formatTime":   FormatTime,
		"dict":         dict,
	}
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// MealIcon renders a meal flag.
func MealIcon(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

// FormatRelativeTime formats a time.Time as a relative time string like "3 days ago".
func FormatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return timediff.TimeDiff(t)
}

// FormatTime formats a timestamp for the history table.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
