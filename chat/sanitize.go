package chat

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultDisclaimer is appended to every reply exactly once.
const DefaultDisclaimer = "This assistant offers general guidance only and is not a substitute for professional medical advice."

// NoAnswerText replaces a reply that is empty after stripping.
const NoAnswerText = "No answer is available for this question."

const endMarker = "<|im_end|>"

var (
	markerPattern     = regexp.MustCompile(`<\|im_(?:start|end)\|>(?:\s*(?:system|user|assistant))?`)
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	bulletPattern     = regexp.MustCompile(`^[-*•]\s*`)
)

// Sanitize cleans raw generation output: everything after the first end
// marker is dropped, remaining template markers are stripped, bullet
// punctuation is normalized to "- ", run-together whitespace collapses, and
// the first content line and each bullet line are capitalized. An empty
// result becomes NoAnswerText. The disclaimer is appended exactly once;
// a reply already containing it verbatim is left alone.
func Sanitize(raw, disclaimer string) string {
	if idx := strings.Index(raw, endMarker); idx >= 0 {
		raw = raw[:idx]
	}
	raw = markerPattern.ReplaceAllString(raw, "")

	var lines []string
	capitalized := false
	for _, line := range strings.Split(raw, "\n") {
		line = whitespacePattern.ReplaceAllString(strings.TrimSpace(line), " ")
		if line == "" {
			if len(lines) > 0 && lines[len(lines)-1] != "" {
				lines = append(lines, "")
			}
			continue
		}
		if loc := bulletPattern.FindString(line); loc != "" {
			line = "- " + capitalize(strings.TrimPrefix(line, loc))
		} else if !capitalized {
			line = capitalize(line)
		}
		capitalized = true
		lines = append(lines, line)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	out := strings.Join(lines, "\n")
	if out == "" {
		out = NoAnswerText
	}
	if disclaimer != "" && !strings.Contains(out, disclaimer) {
		out += "\n\n" + disclaimer
	}
	return out
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
