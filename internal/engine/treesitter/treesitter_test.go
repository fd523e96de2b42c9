package treesitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowave-io/rsflow/internal/complete"
)

func texts(ms []complete.Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Text)
	}
	return out
}

// completeAt splices fragment into src at the first "$0" marker.
func completeAt(t *testing.T, cache *complete.Cache, src, fragment string) []complete.Match {
	t.Helper()
	at := -1
	for i := 0; i+1 < len(src); i++ {
		if src[i] == '$' && src[i+1] == '0' {
			at = i
			break
		}
	}
	require.GreaterOrEqual(t, at, 0, "missing $0 marker")
	cc := complete.NewCodeCompleter(src, complete.Split{Start: at, End: at + 2})
	return cc.Complete(fragment, complete.NoLimit, cache, New())
}

func TestComplete_EndToEnd(t *testing.T) {
	cc := complete.NewCodeCompleter("fn apple() {} \n\n fn main() {  }", complete.Split{Start: 29, End: 29})

	s, pos := cc.Inject("ap")
	require.Equal(t, "fn apple() {} \n\n fn main() { ap }", s)
	require.Equal(t, complete.BytePos(31), pos)

	got := cc.Complete("ap", complete.NoLimit, complete.NewCache(), New())
	require.NotEmpty(t, got)
	assert.Equal(t, "apple", got[0].Text)
	assert.Equal(t, complete.KindFunction, got[0].Kind)
	assert.Equal(t, complete.VirtualRoot, got[0].File)
	assert.Equal(t, "fn apple() {}", got[0].Context)
}

func TestComplete_LocalsRankBeforeItems(t *testing.T) {
	src := `
const value_max: u32 = 9;
fn value_of(x: u32) -> u32 { x }
fn main() {
    let value = 1;
    let (value_a, mut value_b) = (1, 2);
    if let Some(value_opt) = None::<u32> {
        $0
    }
    let value_late = 3;
}
`
	got := texts(completeAt(t, complete.NewCache(), src, "val"))
	assert.Equal(t, []string{"value_opt", "value", "value_a", "value_b", "value_max", "value_of"}, got)
}

func TestComplete_ParametersAndClosures(t *testing.T) {
	src := `
fn run(input_a: i32, mut input_b: i32) {
    let f = |input_c: i32, input_d| { $0 };
}
fn input_unused() {}
`
	got := texts(completeAt(t, complete.NewCache(), src, "input"))
	assert.ElementsMatch(t, []string{"input_a", "input_b", "input_c", "input_d", "input_unused"}, got)
	assert.Equal(t, "input_unused", got[len(got)-1])
}

func TestComplete_InitializerDoesNotSeeItsOwnBinding(t *testing.T) {
	src := "fn main() {\n    let total = tot$0;\n}\n"
	got := completeAt(t, complete.NewCache(), src, "")
	assert.Empty(t, got)
}

func TestComplete_NestedBlocksAreNotVisibleOutside(t *testing.T) {
	src := `
fn main() {
    { let hidden = 1; fn helper() {} }
    $0
}
`
	got := texts(completeAt(t, complete.NewCache(), src, "h"))
	assert.Empty(t, got)
}

func TestComplete_UseImports(t *testing.T) {
	src := `
use std::collections::HashMap;
use std::collections::{HashSet, hash_map::Entry as HashEntry};
use std::fmt as HashFmt;
fn main() { $0 }
`
	got := texts(completeAt(t, complete.NewCache(), src, "Hash"))
	assert.Equal(t, []string{"HashEntry", "HashFmt", "HashMap", "HashSet"}, got)
}

func TestComplete_InlineModulePath(t *testing.T) {
	src := `
mod shapes {
    pub struct Circle;
    pub fn circle_area() {}
    pub mod inner { pub fn circle_deep() {} }
}
fn main() { $0 }
`
	got := texts(completeAt(t, complete.NewCache(), src, "shapes::ci"))
	assert.Equal(t, []string{"circle_area"}, got)

	got = texts(completeAt(t, complete.NewCache(), src, "shapes::C"))
	assert.Equal(t, []string{"Circle"}, got)

	got = texts(completeAt(t, complete.NewCache(), src, "crate::shapes::inner::"))
	assert.Equal(t, []string{"circle_deep"}, got)
}

func TestComplete_EnumVariantsAndAssociatedFunctions(t *testing.T) {
	src := `
enum Color { Red, Green, Rgb(u8, u8, u8) }
struct Point { x: i32, y: i32 }
impl Point {
    fn new() -> Self { Point { x: 0, y: 0 } }
    fn norm(&self) -> i32 { 0 }
}
fn main() { $0 }
`
	assert.Equal(t, []string{"Green", "Red", "Rgb"}, texts(completeAt(t, complete.NewCache(), src, "Color::")))
	assert.Equal(t, []string{"new", "norm"}, texts(completeAt(t, complete.NewCache(), src, "Point::n")))
}

func TestComplete_Members(t *testing.T) {
	src := `
struct Point { x: i32, xs: Vec<i32> }
impl Point { fn x_len(&self) -> usize { 0 } }
fn main() { let p = Point { x: 1, xs: vec![] }; $0 }
`
	got := texts(completeAt(t, complete.NewCache(), src, "p.x"))
	assert.Equal(t, []string{"x", "xs", "x_len"}, got)
}

func TestComplete_OutOfLineModuleThroughResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geometry.rs"), []byte("\xEF\xBB\xBFpub fn area() {}\npub fn arc() {}\npub mod solid;\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "geometry", "solid"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geometry", "solid", "mod.rs"), []byte("pub fn volume() {}\n"), 0o600))
	// A lib.rs on disk must never shadow the composed source.
	require.NoError(t, os.WriteFile(filepath.Join(dir, complete.VirtualRoot), []byte("fn disk_only() {}"), 0o600))
	t.Chdir(dir)

	cache := complete.NewCache()
	src := "mod geometry;\nfn main() { $0 }\n"

	got := completeAt(t, cache, src, "geometry::ar")
	assert.Equal(t, []string{"arc", "area"}, texts(got))
	assert.Equal(t, "geometry.rs", got[0].File)
	assert.True(t, cache.Contains("geometry.rs"))

	assert.Equal(t, []string{"volume"}, texts(completeAt(t, cache, src, "geometry::solid::")))
	assert.Empty(t, completeAt(t, cache, src, "disk"))
}

func TestComplete_UnresolvedModuleIsSoft(t *testing.T) {
	t.Chdir(t.TempDir())
	cache := complete.NewCache()
	cache.Install(complete.VirtualRoot, "mod missing;\nfn main() { missing:: }\n")

	sess := New().Session(cache).(*session)
	var got []complete.Match
	for m := range sess.Complete(complete.VirtualRoot, complete.BytePos(len("mod missing;\nfn main() { missing::"))) {
		got = append(got, m)
	}
	assert.Empty(t, got)
	require.Error(t, sess.Err())
	assert.Contains(t, sess.Err().Error(), "missing.rs")
}

func TestComplete_MalformedSourceStillCompletes(t *testing.T) {
	src := "fn alpha() {}\nfn main() { let x = (1, ; $0 }\n"
	got := texts(completeAt(t, complete.NewCache(), src, "al"))
	assert.Contains(t, got, "alpha")
}

func TestComplete_Limit(t *testing.T) {
	src := "fn b1() {}\nfn b2() {}\nfn b3() {}\nfn main() { $0 }\n"
	cc := complete.NewCodeCompleter(src, complete.Split{Start: len(src) - 5, End: len(src) - 3})
	got := cc.Complete("b", 2, complete.NewCache(), New())
	assert.Equal(t, []string{"b1", "b2"}, texts(got))
}
