// Package format normalizes accumulated file content before it is handed to
// an editor: one line-terminator convention, no trailing whitespace on any
// line, exactly one trailing newline when non-empty.
package format

import "strings"

// Normalize cleans whitespace in content without altering semantic text.
// It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	out := strings.Join(lines, "\n")
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}
