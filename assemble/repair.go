package assemble

import "strings"

// Repair attempts boundary recovery on malformed JSON: slice from the first
// opening brace to the last closing brace, then balance unclosed delimiters
// by appending the deficit of closers. It is best-effort and attempted
// exactly once per response; the caller re-parses the result.
func Repair(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	end := strings.LastIndexByte(s, '}')
	if end > start {
		s = s[start : end+1]
	} else {
		s = s[start:]
	}

	// Walk the text tracking open delimiters outside of string values.
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
			// delimiters inside strings don't count
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case ch == '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ch == ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(s)

	// A response truncated mid-string needs its quote closed first.
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String(), true
}
