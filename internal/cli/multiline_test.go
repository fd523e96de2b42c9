package cli

import (
	"testing"
)

func TestNeedsContinuation(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"let x = 1;", false},
		{"fn main() {", true},
		{"fn main() {}", false},
		{"let v = vec![1,\n  2,", true},
		{"let v = vec![1,\n  2,\n];", false},
		{`let s = "{";`, false},
		{`let s = "abc`, true},
		{`let s = "a\"{";`, false},
		{"let c = '{';", false},
		{`let c = '\'';`, false},
		{`let c = '\u{7b}';`, false},
		{"fn f<'a>(x: &'a str) {", true},
		{"fn f<'a>(x: &'a str) {}", false},
		{`let r = r#"{"#;`, false},
		{`let r = br"(";`, false},
		{`let r = r#"unterminated`, true},
		{"// {", false},
		{"/* start", true},
		{"/* a /* b */", true},
		{"/* a /* b */ */", false},
		{"}", false},
	}
	for _, c := range cases {
		if got := NeedsContinuation(c.in); got != c.want {
			t.Errorf("NeedsContinuation(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeHistory_JoinsAndCompacts(t *testing.T) {
	in := "fn add(\n    a: i32,\n    b: i32,\n) -> i32 {\n    a + b\n}"
	want := "fn add(a: i32, b: i32,) -> i32 { a + b }"
	if got := NormalizeMultilineForHistory(in); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNormalizeHistory_DropsComments(t *testing.T) {
	in := "let x = 1; // one\nlet y = 2; /* two */\n"
	want := "let x = 1; let y = 2;"
	if got := NormalizeMultilineForHistory(in); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNormalizeHistory_CRLFAndBrackets(t *testing.T) {
	in := "let v = [\r\n  1,\r\n  2\r\n];"
	want := "let v = [1, 2];"
	if got := NormalizeMultilineForHistory(in); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNormalizeHistory_KeepsStringsIntact(t *testing.T) {
	in := `println!("( {}  // )", x)`
	if got := NormalizeMultilineForHistory(in); got != in {
		t.Fatalf("got:\n%s\nwant:\n%s", got, in)
	}
}

func TestNormalizeHistory_Empty(t *testing.T) {
	if got := NormalizeMultilineForHistory(""); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeMultilineForHistory("\n  \n"); got != "" {
		t.Fatalf("got %q", got)
	}
}
