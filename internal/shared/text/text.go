// Package text decodes untrusted uploads into lines.
package text

import "strings"

// Decode converts raw bytes into a string, dropping invalid UTF-8 sequences.
func Decode(content []byte) string {
	return strings.ToValidUTF8(string(content), "")
}

// isLineBreak reports the universal-newline boundaries: \n, \r, \v, \f,
// the file/group/record separators, NEL and the Unicode line and paragraph
// separators.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// SplitLines splits s on every line boundary, treating \r\n as one. A
// trailing boundary does not produce an empty final line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}

	var lines []string
	start := 0
	for i, r := range s {
		if i < start || !isLineBreak(r) {
			continue
		}
		lines = append(lines, s[start:i])
		start = i + len(string(r))
		if r == '\r' && start < len(s) && s[start] == '\n' {
			start++
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
