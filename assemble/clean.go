package assemble

import "strings"

// Clean prepares raw model output for parsing: strips a single enclosing
// markdown code fence (tolerating a language tag on the opening fence),
// removes control characters, and optionally collapses line breaks to
// spaces for parsers that are only safe on single-line input.
func Clean(raw string, collapseNewlines bool) string {
	s := strings.TrimSpace(raw)
	s = stripFence(s)
	s = stripControl(s, collapseNewlines)
	if collapseNewlines {
		s = strings.TrimSpace(s)
	}
	return s
}

// stripFence removes exactly one leading and one trailing fence marker.
// Content between the fence lines is returned byte-identical.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	firstNL := strings.IndexByte(s, '\n')
	if firstNL == -1 {
		return s
	}

	rest := strings.TrimRight(s[firstNL+1:], " \t\n")
	if !strings.HasSuffix(rest, "```") {
		return s
	}
	inner := rest[:len(rest)-3]
	// Drop the newline that preceded the closing fence.
	inner = strings.TrimSuffix(inner, "\n")
	return inner
}

// stripControl removes control characters. Newlines and tabs survive unless
// the caller asked for single-line output, in which case line breaks become
// spaces.
func stripControl(s string, collapseNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			if collapseNewlines {
				b.WriteByte(' ')
			} else if r == '\n' {
				b.WriteRune(r)
			}
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
