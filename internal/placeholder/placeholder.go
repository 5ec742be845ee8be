// SPDX-License-Identifier: MPL-2.0

// Package placeholder locates splice sites in target files and replaces
// the regions they govern while preserving the markers themselves.
//
// Markers are matched as literal substrings on a line, so any host
// language comment syntax around them is carried through untouched:
//
//	# ==== PLACEHOLDER deps ====
//	// ==== BEGIN deps ==== ... // ==== END deps ====
package placeholder

import (
	"errors"
	"fmt"
	"strings"

	"igor-cli/pkg/igorfile"
)

var (
	// ErrUnbalancedPlaceholder is the sentinel error wrapped by
	// UnbalancedPlaceholderError.
	ErrUnbalancedPlaceholder = errors.New("unbalanced placeholder")
)

type (
	// UnbalancedPlaceholderError is returned when a BEGIN marker has no
	// matching END before the next BEGIN with the same id or the end of
	// the file. It wraps ErrUnbalancedPlaceholder for errors.Is()
	// compatibility.
	UnbalancedPlaceholderError struct {
		ID   igorfile.Identifier
		Line int
	}

	// line is one physical line of the target, its terminator kept
	// separate so \n and \r\n survive a splice unchanged.
	line struct {
		text string
		eol  string
	}
)

// Error implements the error interface for UnbalancedPlaceholderError.
func (e *UnbalancedPlaceholderError) Error() string {
	return fmt.Sprintf("placeholder %q: BEGIN at line %d has no matching END", e.ID, e.Line)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *UnbalancedPlaceholderError) Unwrap() error {
	return ErrUnbalancedPlaceholder
}

func lineMarker(id igorfile.Identifier) string  { return "==== PLACEHOLDER " + string(id) + " ====" }
func beginMarker(id igorfile.Identifier) string { return "==== BEGIN " + string(id) + " ====" }
func endMarker(id igorfile.Identifier) string   { return "==== END " + string(id) + " ====" }

// Splice replaces every placeholder with the given id in content by body
// and returns the new content plus the number of sites replaced. Zero
// sites is not an error; the caller decides whether to warn.
//
// A single-line placeholder is rewritten into a BEGIN/END block holding
// the body, so a later splice of the same site finds a block and the
// operation is idempotent. A block placeholder keeps its BEGIN and END
// lines and replaces only the lines strictly between them.
func Splice(content []byte, id igorfile.Identifier, body []byte) ([]byte, int, error) {
	lines := splitLines(content)
	bodyLines := splitBody(body)

	lm, bm, em := lineMarker(id), beginMarker(id), endMarker(id)

	var out []line
	count := 0
	for i := 0; i < len(lines); i++ {
		cur := lines[i]
		switch {
		case strings.Contains(cur.text, bm):
			end, err := findEnd(lines, i+1, bm, em, id)
			if err != nil {
				return nil, count, err
			}
			out = append(out, withEOL(cur))
			out = append(out, bodyAs(bodyLines, cur.eol)...)
			out = append(out, lines[end])
			i = end
			count++
		case strings.Contains(cur.text, lm):
			begin := line{text: strings.Replace(cur.text, lm, bm, 1), eol: cur.eol}
			end := line{text: strings.Replace(cur.text, lm, em, 1), eol: cur.eol}
			out = append(out, withEOL(begin))
			out = append(out, bodyAs(bodyLines, cur.eol)...)
			out = append(out, end)
			count++
		default:
			out = append(out, cur)
		}
	}

	return joinLines(out), count, nil
}

// Contains reports whether content holds at least one placeholder with the
// given id, in either form.
func Contains(content []byte, id igorfile.Identifier) bool {
	s := string(content)
	return strings.Contains(s, lineMarker(id)) || strings.Contains(s, beginMarker(id))
}

// findEnd locates the END marker for a BEGIN at from-1. A second BEGIN
// with the same id or the end of the file first means the block is
// unbalanced.
func findEnd(lines []line, from int, bm, em string, id igorfile.Identifier) (int, error) {
	for j := from; j < len(lines); j++ {
		if strings.Contains(lines[j].text, em) {
			return j, nil
		}
		if strings.Contains(lines[j].text, bm) {
			break
		}
	}
	return 0, &UnbalancedPlaceholderError{ID: id, Line: from}
}

// bodyAs renders the body lines with the terminator of the enclosing
// marker line, so inserted lines match the target's line ending style.
func bodyAs(bodyLines []string, eol string) []line {
	if eol == "" {
		eol = "\n"
	}
	out := make([]line, 0, len(bodyLines))
	for _, text := range bodyLines {
		out = append(out, line{text: text, eol: eol})
	}
	return out
}

// withEOL guarantees the line has a terminator, for markers that end up
// with content after them.
func withEOL(l line) line {
	if l.eol == "" {
		l.eol = "\n"
	}
	return l
}

func splitLines(content []byte) []line {
	var out []line
	s := string(content)
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, line{text: s})
			break
		}
		text, eol := s[:i], "\n"
		if strings.HasSuffix(text, "\r") {
			text, eol = text[:len(text)-1], "\r\n"
		}
		out = append(out, line{text: text, eol: eol})
		s = s[i+1:]
	}
	return out
}

// splitBody splits the replacement body into logical lines, dropping
// terminators; bodyAs re-attaches the target's style.
func splitBody(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(body), "\n")
	s = strings.TrimSuffix(s, "\r")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func joinLines(lines []line) []byte {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.text)
		sb.WriteString(l.eol)
	}
	return []byte(sb.String())
}
