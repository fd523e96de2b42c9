package complete

import "strings"

// CodeDelimiters end a completable identifier in Rust code: whitespace and the
// separators of qualified paths (a.b, a::b).
const CodeDelimiters = " :."

// WordBreak returns the byte offset where the last word of line starts, in the
// context of Rust code.
func WordBreak(line string) int {
	return WordBreakStart(line, CodeDelimiters)
}

// WordBreakStart scans line backward and returns the offset just past the last
// byte contained in delims, or 0 when there is none. delims must be ASCII.
func WordBreakStart(line, delims string) int {
	return strings.LastIndexAny(line, delims) + 1
}
