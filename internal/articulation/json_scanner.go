package articulation

import "strings"

// findJSONCandidates scans the input for top-level JSON object candidates.
// It handles nested braces and string escaping to correctly identify
// boundaries, using a byte-level state machine rather than regexes.
//
// Note: it is safe to iterate bytes for ASCII delimiters ({, }, ", \)
// because UTF-8 guarantees ASCII bytes never appear inside a multi-byte
// sequence.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	start := -1
	var inString, escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		if b == '"' {
			inString = true
			continue
		}

		switch b {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// findJSONArray returns the first balanced top-level JSON array in s, or "".
// Brackets inside strings are ignored.
func findJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start == -1 {
		return ""
	}
	var depth int
	var inString, escape bool
	for i := start; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripMarkdownFences removes ```json ... ``` (or plain ```) wrappers that
// models habitually add around structured output.
func stripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	var out strings.Builder
	inFence := false
	for _, line := range strings.Split(trimmed, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			inFence = !inFence
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return strings.TrimSpace(out.String())
}
