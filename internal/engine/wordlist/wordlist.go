// Package wordlist is a completion engine that scans declarations with regular
// expressions. It needs no parser and no cgo, which makes it the engine used
// by tests and a fallback for the console.
package wordlist

import (
	"iter"
	"regexp"
	"sort"
	"strings"

	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/internal/engine"
)

// Examples matched:
//
//	pub fn name(...)        struct Point { ... }
//	enum Color { ... }      trait Draw { ... }
//	type Alias = ...;       const MAX: usize = 3;
//	static mut N: i32 = 0;  mod util;
//	macro_rules! vec2 {     let mut total = 0;
var patterns = []struct {
	re   *regexp.Regexp
	kind complete.Kind
}{
	{regexp.MustCompile(`\bfn\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindFunction},
	{regexp.MustCompile(`\bstruct\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindStruct},
	{regexp.MustCompile(`\benum\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindEnum},
	{regexp.MustCompile(`\btrait\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindTrait},
	{regexp.MustCompile(`\btype\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindType},
	{regexp.MustCompile(`\bconst\s+([A-Za-z_][A-Za-z0-9_]*)\s*:`), complete.KindConst},
	{regexp.MustCompile(`\bstatic\s+(?:mut\s+)?([A-Za-z_][A-Za-z0-9_]*)\s*:`), complete.KindStatic},
	{regexp.MustCompile(`\bmod\s+([A-Za-z_][A-Za-z0-9_]*)`), complete.KindModule},
	{regexp.MustCompile(`\bmacro_rules!\s*([A-Za-z_][A-Za-z0-9_]*)`), complete.KindMacro},
	{regexp.MustCompile(`\blet\s+(?:mut\s+)?([A-Za-z_][A-Za-z0-9_]*)`), complete.KindLocal},
}

type symbol struct {
	name string
	kind complete.Kind
	pos  int
	line string
}

// Engine implements complete.Engine.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Session(cache *complete.Cache) complete.Session {
	return &session{cache: cache}
}

type session struct {
	cache *complete.Cache
	err   error
}

func (s *session) Err() error { return s.err }

func (s *session) Complete(file string, pos complete.BytePos) iter.Seq[complete.Match] {
	return func(yield func(complete.Match) bool) {
		src, err := s.cache.Load(file)
		if err != nil {
			s.err = err
			return
		}
		q := engine.QueryAt(src, int(pos))
		// Qualified paths and member access need scopes this engine does not track.
		if q.Member || len(q.Path) > 0 {
			return
		}
		for _, sym := range scan(src, q.Start) {
			if !strings.HasPrefix(sym.name, q.Prefix) {
				continue
			}
			m := complete.Match{
				Text:    sym.name,
				Kind:    sym.kind,
				File:    file,
				Pos:     complete.BytePos(sym.pos),
				Context: sym.line,
			}
			if !yield(m) {
				return
			}
		}
	}
}

// scan extracts declarations from src, skipping the identifier being typed at
// cursor, and returns them sorted by name with duplicates removed.
func scan(src string, cursor int) []symbol {
	var out []symbol
	offset := 0
	for _, raw := range strings.Split(src, "\n") {
		line := raw
		// quick comment strip
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		for _, p := range patterns {
			for _, m := range p.re.FindAllStringSubmatchIndex(line, -1) {
				at := offset + m[2]
				if at == cursor {
					continue
				}
				out = append(out, symbol{
					name: line[m[2]:m[3]],
					kind: p.kind,
					pos:  at,
					line: strings.TrimSpace(raw),
				})
			}
		}
		offset += len(raw) + 1
	}
	return uniqueSorted(out)
}

// uniqueSorted keeps the first declaration of every name.
func uniqueSorted(in []symbol) []symbol {
	seen := map[string]struct{}{}
	out := make([]symbol, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.name]; ok {
			continue
		}
		seen[s.name] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
