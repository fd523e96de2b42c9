package complete

import (
	"fmt"
	"strings"
)

// BytePos is a byte offset into a composed source.
type BytePos int

// Split is the byte range [Start, End) of a file's accumulated text that live
// input replaces. Text before Start is committed; text from End on conceptually
// follows the cursor.
type Split struct {
	Start int
	End   int
}

func (s Split) String() string { return fmt.Sprintf("%d..%d", s.Start, s.End) }

// Len is the number of bytes cut out by the split.
func (s Split) Len() int { return s.End - s.Start }

// Registry is the read-only view of the session's accumulated source.
type Registry interface {
	// Source returns the accumulated text of a logical file.
	Source(file string) (string, bool)
	// Split returns where live input is spliced into a logical file.
	Split(file string) (Split, bool)
	// CurrentFile is the logical file the user is typing into.
	CurrentFile() string
}

// StaticRegistry is a Registry over plain maps.
type StaticRegistry struct {
	Files   map[string]string
	Splits  map[string]Split
	Current string
}

func (r StaticRegistry) Source(file string) (string, bool) {
	s, ok := r.Files[file]
	return s, ok
}

func (r StaticRegistry) Split(file string) (Split, bool) {
	s, ok := r.Splits[file]
	return s, ok
}

func (r StaticRegistry) CurrentFile() string { return r.Current }

// CodeCompleter splices in-progress fragments into the last known good source
// of the current file. It is cheap and meant to be rebuilt for every request.
type CodeCompleter struct {
	base  string
	split Split
	found bool
}

// Build snapshots the current file of reg. A missing current file degrades to
// an empty source with a 0..0 split; a file without a registered split is
// spliced at 0..0.
func Build(reg Registry) *CodeCompleter {
	cur := reg.CurrentFile()
	base, found := reg.Source(cur)
	if !found {
		return &CodeCompleter{}
	}
	split, _ := reg.Split(cur)
	return &CodeCompleter{base: base, split: split, found: true}
}

// NewCodeCompleter builds a completer over base text with an explicit split.
func NewCodeCompleter(base string, split Split) *CodeCompleter {
	return &CodeCompleter{base: base, split: split, found: true}
}

// HasSource reports whether the current file existed in the registry, telling
// "no file yet" apart from "empty file".
func (c *CodeCompleter) HasSource() bool { return c.found }

// Split returns the range fragments are injected into.
func (c *CodeCompleter) Split() Split { return c.split }

// Inject splices fragment into the base text at the split and returns the
// composed source with the byte position just after the fragment. The split is
// not validated: 0 <= Start <= End <= len(base) must hold.
func (c *CodeCompleter) Inject(fragment string) (string, BytePos) {
	size := len(c.base) + len(fragment) - c.split.Len()
	var b strings.Builder
	b.Grow(size)
	b.WriteString(c.base[:c.split.Start])
	b.WriteString(fragment)
	b.WriteString(c.base[c.split.End:])
	return b.String(), BytePos(c.split.Start + len(fragment))
}
