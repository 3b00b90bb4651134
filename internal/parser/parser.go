// Package parser reads Markdown posts with YAML frontmatter and derives
// plain-text excerpts for listings.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var (
	// Markdown markup removed when building excerpts.
	fenceRe   = regexp.MustCompile("(?s)```.*?```")
	linkRe    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	markupRe  = regexp.MustCompile("(?m)^\\s{0,3}(#{1,6}\\s+|>\\s?|[-*+]\\s+|\\d+\\.\\s+)|[*_`~]")
	spacingRe = regexp.MustCompile(`\s+`)
)

// Post holds the fields of a Markdown post used for import.
type Post struct {
	Frontmatter map[string]any
	Title       string
	Tags        []string
	Author      string
	Body        string
}

// Parse splits frontmatter from the body and extracts title, tags and
// author. The title falls back to the first H1 heading.
func Parse(data []byte) (*Post, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Post{
		Frontmatter: fm,
		Title:       deriveTitle(fm, body),
		Tags:        stringList(fm, "tags"),
		Author:      stringField(fm, "author"),
		Body:        body,
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: treat the whole file as body.
		return nil, string(data), nil
	}
	return fm, body, nil
}

// stringList reads a YAML list or a comma-separated string, trimming and
// deduplicating entries.
func stringList(fm map[string]any, key string) []string {
	var raw []string
	switch v := fm[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(s)]; dup {
			continue
		}
		seen[strings.ToLower(s)] = struct{}{}
		out = append(out, s)
	}
	return out
}

func stringField(fm map[string]any, key string) string {
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Excerpt returns the first max runes of body as plain text, with an
// ellipsis appended when truncated.
func Excerpt(body string, max int) string {
	text := fenceRe.ReplaceAllString(body, " ")
	text = linkRe.ReplaceAllString(text, "$1")
	text = markupRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(spacingRe.ReplaceAllString(text, " "))
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
