// internal/humanoid/text.go
package humanoid

import (
	"strings"
	"unicode"
)

// Preprocess prepares raw text for typing. Code mode normalizes line breaks
// and strips leading indentation from every line, since editors re-indent on
// their own. Otherwise line breaks are kept, turned into single spaces, or
// removed according to mode.
func Preprocess(text string, mode NewlineMode, codeMode bool) string {
	if codeMode {
		return stripIndentation(normalizeLineBreaks(text))
	}
	switch mode {
	case NewlineSpace:
		return replaceLineBreaks(text, " ")
	case NewlineRemove:
		return replaceLineBreaks(text, "")
	default:
		return text
	}
}

func normalizeLineBreaks(text string) string {
	return replaceLineBreaks(text, "\n")
}

// replaceLineBreaks substitutes each \r\n, \n or \r sequence with repl.
func replaceLineBreaks(text, repl string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			b.WriteString(repl)
		case '\n':
			b.WriteString(repl)
		default:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}

func stripIndentation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lineStart := true
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			lineStart = true
			continue
		}
		if lineStart && unicode.IsSpace(r) {
			continue
		}
		lineStart = false
		b.WriteRune(r)
	}
	return b.String()
}

// IsPunctuation reports whether r gets a punctuation-length pause.
func IsPunctuation(r rune) bool {
	return strings.ContainsRune(".!?,;:", r)
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}
