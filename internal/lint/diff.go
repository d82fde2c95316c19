// Package lint implements the static analyzers that run over a changed
// file's unified diff.
package lint

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is one new-side line of a diff.
type Line struct {
	Number int // line number in the new file
	Text   string
	Added  bool
}

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// ParseDiff returns the new-side lines of a unified diff in order. Removed
// lines and anything outside a hunk are dropped. An empty line inside a hunk
// is a blank context line whose leading space was stripped.
func ParseDiff(patch string) []Line {
	var lines []Line
	next, remaining := 0, 0
	inHunk := false

	for _, raw := range strings.Split(strings.TrimSuffix(patch, "\n"), "\n") {
		raw = strings.TrimSuffix(raw, "\r")

		if m := hunkHeader.FindStringSubmatch(raw); m != nil {
			next, _ = strconv.Atoi(m[1])
			remaining = 1
			if m[2] != "" {
				remaining, _ = strconv.Atoi(m[2])
			}
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		if raw == "" {
			if remaining > 0 {
				lines = append(lines, Line{Number: next})
				next++
				remaining--
			}
			continue
		}

		switch raw[0] {
		case '+':
			lines = append(lines, Line{Number: next, Text: raw[1:], Added: true})
			next++
			remaining--
		case ' ':
			lines = append(lines, Line{Number: next, Text: raw[1:]})
			next++
			remaining--
		case '-', '\\':
			// removed line or "\ No newline at end of file"
		default:
			inHunk = false
		}
	}

	return lines
}

// AddedLines filters lines down to those the change introduced.
func AddedLines(lines []Line) []Line {
	var out []Line
	for _, l := range lines {
		if l.Added {
			out = append(out, l)
		}
	}
	return out
}
