package email

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// RenderTemplate replaces {{key}} placeholders from data. Keys are trimmed
// before lookup; unknown keys are left in place so a template can be
// rendered in several passes.
func RenderTemplate(s string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-2]
		if v, ok := data[strings.TrimSpace(key)]; ok {
			return v
		}
		return m
	})
}
