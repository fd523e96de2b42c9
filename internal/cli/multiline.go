package cli

import (
	"strings"
	"unicode/utf8"
)

type region uint8

const (
	regionCode region = iota
	regionLiteral
	regionComment
)

// scanState is what remains open at the end of scanned input.
type scanState struct {
	depth int  // unmatched ( [ {
	open  bool // inside a string literal or block comment
}

// classify labels every byte of src as code, string/char literal or comment.
// Block comments nest as they do in Rust; lifetimes ('a) are code.
func classify(src string) ([]region, scanState) {
	regs := make([]region, len(src))
	var st scanState
	mark := func(from, to int, r region) {
		for k := from; k < to; k++ {
			regs[k] = r
		}
	}
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src)
			} else {
				end += i
			}
			mark(i, end, regionComment)
			i = end
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end, closed := blockCommentEnd(src, i)
			mark(i, end, regionComment)
			st.open = st.open || !closed
			i = end
		case c == '"':
			end, closed := stringEnd(src, i+1)
			mark(i, end, regionLiteral)
			st.open = st.open || !closed
			i = end
		case c == 'r' && rawStringAt(src, i):
			end, closed := rawStringEnd(src, i)
			mark(i, end, regionLiteral)
			st.open = st.open || !closed
			i = end
		case c == '\'':
			n := charLiteralLen(src[i:])
			if n == 0 {
				i++
				continue
			}
			mark(i, i+n, regionLiteral)
			i += n
		case c == '(' || c == '[' || c == '{':
			st.depth++
			i++
		case c == ')' || c == ']' || c == '}':
			st.depth--
			i++
		default:
			i++
		}
	}
	return regs, st
}

func blockCommentEnd(src string, i int) (int, bool) {
	depth := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i, true
			}
		default:
			i++
		}
	}
	return len(src), false
}

// stringEnd returns the index just past the closing quote of a string whose
// body starts at i.
func stringEnd(src string, i int) (int, bool) {
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1, true
		default:
			i++
		}
	}
	return len(src), false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// rawStringAt reports whether r"…", r#"…"# or br"…" starts at the 'r' at i.
func rawStringAt(src string, i int) bool {
	if i > 0 && isIdentByte(src[i-1]) {
		if src[i-1] != 'b' || (i > 1 && isIdentByte(src[i-2])) {
			return false
		}
	}
	j := i + 1
	for j < len(src) && src[j] == '#' {
		j++
	}
	return j < len(src) && src[j] == '"'
}

func rawStringEnd(src string, i int) (int, bool) {
	j := i + 1
	hashes := 0
	for src[j] == '#' {
		hashes++
		j++
	}
	closing := "\"" + strings.Repeat("#", hashes)
	end := strings.Index(src[j+1:], closing)
	if end < 0 {
		return len(src), false
	}
	return j + 1 + end + len(closing), true
}

// charLiteralLen returns the length of the char literal at the start of s, or
// 0 when the quote starts a lifetime.
func charLiteralLen(s string) int {
	if len(s) >= 3 && s[1] == '\\' {
		end := strings.IndexByte(s[3:], '\'')
		if end < 0 {
			return 0
		}
		return end + 4
	}
	r, size := utf8.DecodeRuneInString(s[1:])
	if size == 0 || r == '\'' || len(s) <= 1+size || s[1+size] != '\'' {
		return 0
	}
	return 2 + size
}

// NeedsContinuation reports whether input stops inside an open bracket, string
// literal or block comment, so the console should read another line.
func NeedsContinuation(input string) bool {
	_, st := classify(input)
	return st.open || st.depth > 0
}

// NormalizeMultilineForHistory compacts a possibly-multiline entry into a single
// line suitable for history:
// - Converts CRLF/CR to LF
// - Drops comments, which would swallow the joined remainder
// - Trims each line and drops empty ones, joining the rest with a space
// - Collapses runs of blanks in code and removes them inside ( ) and [ ]
// String literals are left untouched.
func NormalizeMultilineForHistory(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	regs, _ := classify(s)
	var code strings.Builder
	code.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if regs[i] != regionComment {
			code.WriteByte(s[i])
		}
	}
	parts := strings.Split(code.String(), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return compactBlanks(strings.Join(out, " "))
}

func compactBlanks(s string) string {
	regs, _ := classify(s)
	isBlank := func(c byte) bool { return c == ' ' || c == '\t' }
	var b strings.Builder
	b.Grow(len(s))
	afterOpener := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if regs[i] != regionCode {
			b.WriteByte(c)
			afterOpener = false
			continue
		}
		if isBlank(c) {
			j := i
			for j < len(s) && isBlank(s[j]) {
				j++
			}
			beforeCloser := j < len(s) && regs[j] == regionCode && (s[j] == ')' || s[j] == ']')
			if !afterOpener && !beforeCloser {
				b.WriteByte(' ')
			}
			i = j - 1
			continue
		}
		b.WriteByte(c)
		afterOpener = c == '(' || c == '['
	}
	return b.String()
}
