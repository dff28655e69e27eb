package util

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// RenderTemplate replaces template variables using Go's text/template package.
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	// Create a new template with helper funcs
	tmpl, err := template.New("prompt").Option("missingkey=zero").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": func(s string) string {
			if len(s) == 0 {
				return s
			}
			return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
	}).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// SubstituteParams replaces every "{key}" placeholder with the formatted
// parameter value. Unknown placeholders are left untouched.
func SubstituteParams(text string, params map[string]any) string {
	for k, v := range params {
		text = strings.ReplaceAll(text, "{"+k+"}", fmt.Sprint(v))
	}
	return text
}

var fillerPattern = regexp.MustCompile(`(?i)\b(basically|actually|really|very|just|simply|literally|kindly|quite)\b[ \t]*`)

// StripFillers removes filler words that add no meaning to a prompt.
func StripFillers(text string) string {
	return fillerPattern.ReplaceAllString(text, "")
}

var (
	innerSpace = regexp.MustCompile(`([^ \t])[ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// CollapseWhitespace turns inner runs of spaces and tabs into one space, trims
// trailing blanks and limits blank lines to one. Leading indentation is kept.
func CollapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = innerSpace.ReplaceAllString(line, "$1 ")
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
