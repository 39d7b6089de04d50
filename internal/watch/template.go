package watch

import (
	"regexp"
	"strconv"
	"time"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// DefaultTemplate is used when a channel config carries no template.
const DefaultTemplate = "{{url}} updated at {{createdAt}}"

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// FormatTemplate substitutes task fields into the template. Unknown
// placeholders resolve to the empty string. Pure: no side effects, no
// global mutable state.
func FormatTemplate(task model.WatchTask, template string) string {
	if template == "" {
		template = DefaultTemplate
	}

	last := task.LastExecution
	fields := map[string]string{
		"id":               task.ID,
		"url":              task.URL,
		"hashTarget":       last.HashTarget,
		"hashChanged":      strconv.FormatBool(last.HashChanged),
		"extractedTarget":  last.ExtractedTarget,
		"extractedContent": last.ExtractedContent,
		"errorMessage":     last.ErrorMessage,
		"createdAt":        formatTime(last.CreatedAt),
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return fields[key]
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
