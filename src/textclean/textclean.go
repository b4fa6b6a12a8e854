package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// letter, hyphen, line break, lowercase continuation: "exam-\nple"
	hyphenBreak   = regexp.MustCompile(`(\p{L})-[ \t]*\n[ \t]*(\p{Ll})`)
	paragraphGap  = regexp.MustCompile(`\n[ \t]*\n[\s]*`)
	horizontalRun = regexp.MustCompile(`[ \t]+`)
)

// Clean turns raw OCR output into translatable text. Hyphenated line breaks
// are joined, single line breaks become spaces and paragraph breaks survive
// as exactly one blank line.
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Matches cannot overlap, so "x-\ny-\nz" needs a second pass.
	for {
		joined := hyphenBreak.ReplaceAllString(text, "$1$2")
		if joined == text {
			break
		}
		text = joined
	}

	paragraphs := paragraphGap.Split(text, -1)
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.ReplaceAll(p, "\n", " ")
		p = horizontalRun.ReplaceAllString(p, " ")
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// Sanitize makes text safe for a single log line.
func Sanitize(text string, maxLen int) string {
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		text = string([]rune(text)[:maxLen]) + "..."
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
