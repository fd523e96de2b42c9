// Package engine holds helpers shared by the completion engine adapters.
package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Query describes what is being completed at a cursor.
type Query struct {
	// Prefix is the identifier text ending at the cursor, possibly empty.
	Prefix string
	// Start is the byte offset where Prefix begins.
	Start int
	// Path holds the segments of a path qualifier: "a::b::c" gives [a b].
	Path []string
	// Member is set when the prefix follows a '.' (field or method access).
	Member bool
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// identBefore returns the start offset of the identifier ending at end.
func identBefore(src string, end int) int {
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(src[:start])
		if !isIdentRune(r) {
			break
		}
		start -= size
	}
	return start
}

// QueryAt inspects src around pos. Offsets outside src are clamped.
func QueryAt(src string, pos int) Query {
	if pos < 0 {
		pos = 0
	}
	if pos > len(src) {
		pos = len(src)
	}
	start := identBefore(src, pos)
	q := Query{Prefix: src[start:pos], Start: start}

	switch {
	case strings.HasSuffix(src[:start], "::"):
		end := start - 2
		for {
			s := identBefore(src, end)
			if s == end {
				break
			}
			q.Path = append([]string{src[s:end]}, q.Path...)
			if !strings.HasSuffix(src[:s], "::") {
				break
			}
			end = s - 2
		}
	case strings.HasSuffix(src[:start], "."):
		q.Member = true
	}
	return q
}
