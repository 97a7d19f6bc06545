// Package prompt renders model-facing text from {{variable}} templates.
package prompt

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`{{\w+}}`)

// Compose replaces every {{identifier}} in template with vars[identifier].
// Unknown identifiers render as empty text. Substituted values are not
// expanded again.
func Compose(vars map[string]string, template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		return vars[key]
	})
}

// AddHeader prefixes body with a header line. An empty body yields an empty
// string so optional sections disappear from the rendered prompt.
func AddHeader(header, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return header + "\n" + body + "\n"
}
