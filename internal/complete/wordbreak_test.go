package complete

import "testing"

func TestWordBreak(t *testing.T) {
	cases := map[string]int{
		"":                 0,
		"apple":            0,
		"let x = ap":       8,
		"std::col":         5,
		"foo.ba":           4,
		"foo.":             4,
		"v.iter().ma":      9,
		"a ":               2,
		"let s = \"é\".le": 13,
	}
	for line, want := range cases {
		if got := WordBreak(line); got != want {
			t.Fatalf("WordBreak(%q) = %d, want %d", line, got, want)
		}
	}
}

func TestWordBreakStart_CustomDelimiters(t *testing.T) {
	if got := WordBreakStart("a,b;cd", ",;"); got != 4 {
		t.Fatalf("got %d", got)
	}
	if got := WordBreakStart("a b", ""); got != 0 {
		t.Fatalf("got %d", got)
	}
}
