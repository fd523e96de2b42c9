// Package session owns the source accumulated by a console session and drives
// completion requests against it.
package session

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/pkg/log"
)

// DefaultFile is the logical file a new session types into.
const DefaultFile = "main"

// file is the accumulated source of one logical file.
type file struct {
	items []string
	stmts []string
}

// rendered is a file's text together with its two splice points.
type rendered struct {
	text      string
	itemSplit complete.Split
	stmtSplit complete.Split
}

func (f *file) render() rendered {
	var b strings.Builder
	for _, it := range f.items {
		b.WriteString(it)
		b.WriteString("\n")
	}
	itemAt := b.Len()
	b.WriteString("\nfn main() {\n")
	for _, st := range f.stmts {
		for _, ln := range strings.Split(st, "\n") {
			b.WriteString("    ")
			b.WriteString(ln)
			b.WriteString("\n")
		}
	}
	b.WriteString("    ")
	stmtAt := b.Len()
	b.WriteString("\n}\n")
	return rendered{
		text:      b.String(),
		itemSplit: complete.Split{Start: itemAt, End: itemAt},
		stmtSplit: complete.Split{Start: stmtAt, End: stmtAt},
	}
}

// Options configure a Session.
type Options struct {
	Engine complete.Engine
	// Cache defaults to a fresh complete.NewCache().
	Cache *complete.Cache
	// Limit caps completion results; complete.NoLimit returns all.
	Limit int
}

// Session is a console session. At most one completion runs at a time; the
// accumulated source stays editable while the engine works on a snapshot.
type Session struct {
	// reqMu serializes completions, which share the cache's VirtualRoot.
	reqMu sync.Mutex

	mu      sync.Mutex
	files   map[string]*file
	current string
	cache   *complete.Cache
	engine  complete.Engine
	limit   int
}

func New(opts Options) *Session {
	cache := opts.Cache
	if cache == nil {
		cache = complete.NewCache()
	}
	return &Session{
		files:   map[string]*file{},
		current: DefaultFile,
		cache:   cache,
		engine:  opts.Engine,
		limit:   opts.Limit,
	}
}

// Cache returns the session's file cache.
func (s *Session) Cache() *complete.Cache { return s.cache }

// Push appends code to the current file, as an item or as a statement of
// main, and reports whether it was taken as an item.
func (s *Session) Push(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[s.current]
	if !ok {
		f = &file{}
		s.files[s.current] = f
	}
	if IsItem(code) {
		f.items = append(f.items, code)
		return true
	}
	if !strings.HasSuffix(code, ";") && !strings.HasSuffix(code, "}") {
		code += ";"
	}
	f.stmts = append(f.stmts, code)
	return false
}

// SetCurrent switches the logical file being typed into. The file is created
// on its first Push.
func (s *Session) SetCurrent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
}

// Reset forgets everything accumulated in the current file.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, s.current)
}

// Files lists the logical files that hold source.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CurrentFile implements complete.Registry.
func (s *Session) CurrentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Source implements complete.Registry.
func (s *Session) Source(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceLocked(name)
}

// Split implements complete.Registry; statements are spliced at the end of
// main.
func (s *Session) Split(name string) (complete.Split, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[name]
	if !ok {
		return complete.Split{}, false
	}
	return f.render().stmtSplit, true
}

func (s *Session) sourceLocked(name string) (string, bool) {
	f, ok := s.files[name]
	if !ok {
		return "", false
	}
	return f.render().text, true
}

// Render returns the source of a logical file as a runnable program.
func (s *Session) Render(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceLocked(name)
}

// Program renders the current file.
func (s *Session) Program() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceLocked(s.current)
}

// snapshot freezes the current file for one request, splitting where fragment
// belongs: after the items for item fragments, inside main otherwise. The
// caller holds s.mu.
func (s *Session) snapshot(fragment string) complete.StaticRegistry {
	reg := complete.StaticRegistry{Current: s.current}
	f, ok := s.files[s.current]
	if !ok {
		return reg
	}
	r := f.render()
	split := r.stmtSplit
	if IsItem(fragment) {
		split = r.itemSplit
	}
	reg.Files = map[string]string{s.current: r.text}
	reg.Splits = map[string]complete.Split{s.current: split}
	return reg
}

// Complete completes the last word of line. pending holds earlier lines of a
// multi-line entry that are not yet pushed. It returns the byte offset in line
// where the completed word starts.
func (s *Session) Complete(pending, line string) (int, []complete.Match) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	start := complete.WordBreak(line)
	fragment := line
	if pending != "" {
		fragment = pending + "\n" + line
	}
	s.mu.Lock()
	reg := s.snapshot(fragment)
	s.mu.Unlock()

	cc := complete.Build(reg)
	matches := cc.Complete(fragment, s.limit, s.cache, s.engine)
	log.Debugw("completion",
		"request", uuid.NewString(),
		"file", reg.Current,
		"has_source", cc.HasSource(),
		"split", cc.Split().String(),
		"word", line[start:],
		"matches", len(matches))
	return start, matches
}

var itemKeywords = []string{
	"fn", "struct", "enum", "trait", "impl", "mod", "use", "const", "static",
	"type", "union", "extern", "macro_rules!", "async fn", "unsafe fn",
	"unsafe impl", "unsafe trait",
}

// IsItem reports whether code starts a top-level item rather than a statement.
func IsItem(code string) bool {
	s := strings.TrimSpace(code)
	// outer attributes: #[derive(Debug)] struct ...
	for strings.HasPrefix(s, "#[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return true
		}
		s = strings.TrimSpace(s[end+1:])
	}
	if rest, ok := strings.CutPrefix(s, "pub"); ok && (strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "(")) {
		return true
	}
	for _, kw := range itemKeywords {
		if s == kw || strings.HasPrefix(s, kw+" ") || (strings.HasSuffix(kw, "!") && strings.HasPrefix(s, kw)) {
			return true
		}
	}
	return false
}
