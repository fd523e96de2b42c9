package wordlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowave-io/rsflow/internal/complete"
)

func names(ms []complete.Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Text)
	}
	return out
}

func TestComplete_EndToEnd(t *testing.T) {
	cc := complete.NewCodeCompleter("fn apple() {} \n\n fn main() {  }", complete.Split{Start: 29, End: 29})
	got := cc.Complete("ap", complete.NoLimit, complete.NewCache(), New())
	require.NotEmpty(t, got)
	assert.Equal(t, "apple", got[0].Text)
	assert.Equal(t, complete.KindFunction, got[0].Kind)
	assert.Equal(t, complete.BytePos(3), got[0].Pos)
}

func TestComplete_SortedUniqueAndFiltered(t *testing.T) {
	src := "// fn commented() {}\n" +
		"struct Counter { n: i32 }\r\n" +
		"fn count() {}\n" +
		"fn compute() {}\n" +
		"fn count() {}\n" +
		"fn main() {\n    let mut cost = 0;\n    co\n}\n"
	cache := complete.NewCache()
	cache.Install("x.rs", src)
	pos := len(src) - len("\n}\n")

	var got []complete.Match
	for m := range New().Session(cache).Complete("x.rs", complete.BytePos(pos)) {
		got = append(got, m)
	}
	assert.Equal(t, []string{"compute", "cost", "count"}, names(got))
	assert.Equal(t, "count", src[got[2].Pos:int(got[2].Pos)+5])
}

func TestComplete_QualifiedYieldsNothing(t *testing.T) {
	cc := complete.NewCodeCompleter("fn abc() {}\n", complete.Split{Start: 12, End: 12})
	assert.Empty(t, cc.Complete("x.a", complete.NoLimit, complete.NewCache(), New()))
	assert.Empty(t, cc.Complete("m::a", complete.NoLimit, complete.NewCache(), New()))
}

func TestComplete_UnreadableFileIsSoft(t *testing.T) {
	sess := New().Session(complete.NewCache()).(*session)
	for range sess.Complete("does/not/exist.rs", 0) {
		t.Fatal("no matches expected")
	}
	assert.Error(t, sess.Err())
}
