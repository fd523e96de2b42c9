// Package treesitter is the production completion engine. It parses the
// composed source with the tree-sitter Rust grammar and completes identifiers
// that are in scope at the cursor, following path qualifiers into inline and
// out-of-line modules, enums and impl blocks.
package treesitter

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/flowave-io/rsflow/internal/complete"
	"github.com/flowave-io/rsflow/internal/engine"
)

// Ranking classes, best first.
const (
	classLocal = iota
	classScope
	classItem
	classImport
)

type candidate struct {
	complete.Match
	class int
	depth int
}

// Engine implements complete.Engine.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Session(cache *complete.Cache) complete.Session {
	return &session{cache: cache}
}

type session struct {
	cache *complete.Cache
	errs  *multierror.Error
}

// Err reports files that could not be resolved or parsed during the session.
func (s *session) Err() error { return s.errs.ErrorOrNil() }

func (s *session) fail(err error) { s.errs = multierror.Append(s.errs, err) }

func (s *session) Complete(file string, pos complete.BytePos) iter.Seq[complete.Match] {
	return func(yield func(complete.Match) bool) {
		for _, c := range s.candidates(file, int(pos)) {
			if !yield(c.Match) {
				return
			}
		}
	}
}

func (s *session) candidates(file string, pos int) []candidate {
	f, err := s.parse(file)
	if err != nil {
		s.fail(err)
		return nil
	}
	defer f.close()

	q := engine.QueryAt(f.src, pos)
	var cands []candidate
	switch {
	case q.Member:
		cands = f.members()
	case len(q.Path) > 0:
		cands = s.qualified(f, q.Path)
	default:
		cands = f.inScope(q.Start)
	}
	return rank(cands, q.Prefix)
}

// rank filters by prefix, keeps the best candidate per name and orders them.
func rank(cands []candidate, prefix string) []candidate {
	best := map[string]int{}
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c.Text == "" || !strings.HasPrefix(c.Text, prefix) {
			continue
		}
		if i, ok := best[c.Text]; ok {
			if better(c, out[i]) {
				out[i] = c
			}
			continue
		}
		best[c.Text] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.class != b.class {
			return a.class < b.class
		}
		if a.depth != b.depth {
			return a.depth > b.depth
		}
		return a.Text < b.Text
	})
	return out
}

func better(a, b candidate) bool {
	if a.class != b.class {
		return a.class < b.class
	}
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.Pos > b.Pos
}

// parsed is one file with its syntax tree.
type parsed struct {
	name string
	src  string
	tree *sitter.Tree
}

func (p *parsed) close() { p.tree.Close() }

func (p *parsed) root() *sitter.Node { return p.tree.RootNode() }

func (p *parsed) text(n *sitter.Node) string { return p.src[n.StartByte():n.EndByte()] }

// line returns the trimmed source line holding n, used as match context.
func (p *parsed) line(n *sitter.Node) string {
	start := strings.LastIndexByte(p.src[:n.StartByte()], '\n') + 1
	end := strings.IndexByte(p.src[n.StartByte():], '\n')
	if end < 0 {
		return strings.TrimSpace(p.src[start:])
	}
	return strings.TrimSpace(p.src[start : int(n.StartByte())+end])
}

func (s *session) parse(file string) (*parsed, error) {
	src, err := s.cache.Load(file)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rust.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return &parsed{name: file, src: src, tree: tree}, nil
}

func contains(n *sitter.Node, pos int) bool {
	return int(n.StartByte()) <= pos && pos <= int(n.EndByte())
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

var itemKinds = map[string]complete.Kind{
	"function_item":           complete.KindFunction,
	"function_signature_item": complete.KindFunction,
	"struct_item":             complete.KindStruct,
	"union_item":              complete.KindStruct,
	"enum_item":               complete.KindEnum,
	"trait_item":              complete.KindTrait,
	"type_item":               complete.KindType,
	"const_item":              complete.KindConst,
	"static_item":             complete.KindStatic,
	"mod_item":                complete.KindModule,
	"macro_definition":        complete.KindMacro,
}

func (p *parsed) candidate(name *sitter.Node, decl *sitter.Node, kind complete.Kind, class, depth int) candidate {
	return candidate{
		Match: complete.Match{
			Text:    p.text(name),
			Kind:    kind,
			File:    p.name,
			Pos:     complete.BytePos(name.StartByte()),
			Context: p.line(decl),
		},
		class: class,
		depth: depth,
	}
}

// item returns the candidate for a named item declaration, if n is one.
func (p *parsed) item(n *sitter.Node, class, depth int) (candidate, bool) {
	kind, ok := itemKinds[n.Type()]
	if !ok {
		return candidate{}, false
	}
	name := n.ChildByFieldName("name")
	if name == nil {
		return candidate{}, false
	}
	return p.candidate(name, n, kind, class, depth), true
}

// inScope collects what is visible at pos: items of every scope enclosing pos,
// locals declared before pos, parameters of enclosing functions and closures,
// and use imports.
func (p *parsed) inScope(pos int) []candidate {
	var out []candidate
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		for _, c := range namedChildren(n) {
			class := classItem
			if depth > 0 {
				class = classScope
			}
			if cand, ok := p.item(c, class, depth); ok {
				out = append(out, cand)
			}
			switch c.Type() {
			case "use_declaration":
				out = append(out, p.uses(c.ChildByFieldName("argument"), depth)...)
				continue
			case "let_declaration":
				if int(c.EndByte()) <= pos {
					out = append(out, p.bindings(c.ChildByFieldName("pattern"), c, depth)...)
				}
			case "function_item":
				if contains(c, pos) {
					out = append(out, p.parameters(c.ChildByFieldName("parameters"), depth+1)...)
				}
			case "closure_expression":
				if contains(c, pos) {
					out = append(out, p.bindings(c.ChildByFieldName("parameters"), c, depth+1)...)
				}
			case "let_condition":
				// if let / while let: bound for the rest of the enclosing expression.
				if int(c.EndByte()) <= pos {
					out = append(out, p.bindings(c.ChildByFieldName("pattern"), c, depth+1)...)
				}
			case "if_let_expression", "while_let_expression", "for_expression":
				if body := c.ChildByFieldName("body"); body != nil && contains(body, pos) {
					out = append(out, p.bindings(c.ChildByFieldName("pattern"), c, depth+1)...)
				} else if cons := c.ChildByFieldName("consequence"); cons != nil && contains(cons, pos) {
					out = append(out, p.bindings(c.ChildByFieldName("pattern"), c, depth+1)...)
				}
			case "match_arm":
				if v := c.ChildByFieldName("value"); v != nil && contains(v, pos) {
					out = append(out, p.bindings(c.ChildByFieldName("pattern"), c, depth+1)...)
				}
			}
			if !contains(c, pos) {
				continue
			}
			switch c.Type() {
			case "block", "declaration_list", "function_item", "closure_expression", "mod_item":
				walk(c, depth+1)
			default:
				walk(c, depth)
			}
		}
	}
	walk(p.root(), 0)
	return out
}

func (p *parsed) parameters(params *sitter.Node, depth int) []candidate {
	var out []candidate
	for _, prm := range namedChildren(params) {
		if prm.Type() != "parameter" {
			continue
		}
		out = append(out, p.bindings(prm.ChildByFieldName("pattern"), prm, depth)...)
	}
	return out
}

// bindings returns the identifiers a pattern binds.
func (p *parsed) bindings(pattern, decl *sitter.Node, depth int) []candidate {
	if pattern == nil {
		return nil
	}
	var out []candidate
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier", "shorthand_field_identifier":
			out = append(out, p.candidate(n, decl, complete.KindLocal, classLocal, depth))
			return
		case "scoped_identifier", "type_identifier", "field_identifier", "primitive_type", "generic_type", "reference_type":
			return
		case "parameter":
			if pat := n.ChildByFieldName("pattern"); pat != nil {
				visit(pat)
			}
			return
		}
		children := namedChildren(n)
		// Some(x): the first child names the variant, not a binding.
		if n.Type() == "tuple_struct_pattern" && len(children) > 0 {
			children = children[1:]
		}
		for _, c := range children {
			visit(c)
		}
	}
	visit(pattern)
	return out
}

// uses returns the names brought into scope by a use tree.
func (p *parsed) uses(arg *sitter.Node, depth int) []candidate {
	if arg == nil {
		return nil
	}
	switch arg.Type() {
	case "identifier":
		return []candidate{p.candidate(arg, arg, complete.KindUnknown, classImport, depth)}
	case "scoped_identifier":
		if name := arg.ChildByFieldName("name"); name != nil {
			return []candidate{p.candidate(name, arg, complete.KindUnknown, classImport, depth)}
		}
	case "use_as_clause":
		if alias := arg.ChildByFieldName("alias"); alias != nil {
			return []candidate{p.candidate(alias, arg, complete.KindUnknown, classImport, depth)}
		}
	case "scoped_use_list":
		return p.uses(arg.ChildByFieldName("list"), depth)
	case "use_list":
		var out []candidate
		for _, c := range namedChildren(arg) {
			out = append(out, p.uses(c, depth)...)
		}
		return out
	}
	return nil
}

// members collects struct fields and methods for completion after '.'.
func (p *parsed) members() []candidate {
	var out []candidate
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "field_declaration":
				if name := c.ChildByFieldName("name"); name != nil {
					out = append(out, p.candidate(name, c, complete.KindField, classLocal, 0))
				}
				continue
			case "impl_item", "trait_item":
				for _, fn := range namedChildren(c.ChildByFieldName("body")) {
					if cand, ok := p.item(fn, classScope, 0); ok && cand.Kind == complete.KindFunction {
						out = append(out, cand)
					}
				}
				continue
			}
			walk(c)
		}
	}
	walk(p.root())
	return out
}

// scope is a module body searched by a path qualifier.
type scope struct {
	file *parsed
	body *sitter.Node
	dir  string
}

// moduleDir is where out-of-line submodules of file live.
func moduleDir(file string) string {
	dir := filepath.Dir(file)
	switch filepath.Base(file) {
	case complete.VirtualRoot, "main.rs", "mod.rs":
		return dir
	}
	return filepath.Join(dir, strings.TrimSuffix(filepath.Base(file), ".rs"))
}

// qualified completes the members of the last segment of path.
func (s *session) qualified(root *parsed, path []string) []candidate {
	cur := scope{file: root, body: root.root(), dir: moduleDir(root.name)}
	var opened []*parsed
	defer func() {
		for _, f := range opened {
			f.close()
		}
	}()

	for i, seg := range path {
		last := i == len(path)-1
		switch seg {
		case "crate":
			cur = scope{file: root, body: root.root(), dir: moduleDir(root.name)}
			continue
		case "self", "super":
			continue
		}
		next, ok := s.enterModule(cur, seg, &opened)
		if ok {
			cur = next
			continue
		}
		if last {
			return cur.file.associated(cur.body, seg)
		}
		return nil
	}

	var out []candidate
	for _, c := range namedChildren(cur.body) {
		if cand, ok := cur.file.item(c, classItem, 0); ok {
			out = append(out, cand)
		}
	}
	return out
}

// enterModule finds module name in cur, loading it from storage when it is
// declared out of line.
func (s *session) enterModule(cur scope, name string, opened *[]*parsed) (scope, bool) {
	for _, c := range namedChildren(cur.body) {
		if c.Type() != "mod_item" {
			continue
		}
		n := c.ChildByFieldName("name")
		if n == nil || cur.file.text(n) != name {
			continue
		}
		if body := c.ChildByFieldName("body"); body != nil {
			return scope{file: cur.file, body: body, dir: filepath.Join(cur.dir, name)}, true
		}
		var errs *multierror.Error
		for _, cand := range []string{
			filepath.Join(cur.dir, name+".rs"),
			filepath.Join(cur.dir, name, "mod.rs"),
		} {
			f, err := s.parse(cand)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			*opened = append(*opened, f)
			return scope{file: f, body: f.root(), dir: moduleDir(cand)}, true
		}
		s.fail(fmt.Errorf("module %s: %w", name, errs))
		return scope{}, false
	}
	return scope{}, false
}

// associated returns enum variants and impl functions of the type name
// declared in body.
func (p *parsed) associated(body *sitter.Node, name string) []candidate {
	var out []candidate
	for _, c := range namedChildren(body) {
		n := c.ChildByFieldName("name")
		switch c.Type() {
		case "enum_item":
			if n == nil || p.text(n) != name {
				continue
			}
			for _, v := range namedChildren(c.ChildByFieldName("body")) {
				if v.Type() != "enum_variant" {
					continue
				}
				if vn := v.ChildByFieldName("name"); vn != nil {
					out = append(out, p.candidate(vn, v, complete.KindVariant, classItem, 0))
				}
			}
		case "impl_item":
			t := c.ChildByFieldName("type")
			if t == nil || p.text(t) != name {
				continue
			}
			for _, fn := range namedChildren(c.ChildByFieldName("body")) {
				if cand, ok := p.item(fn, classItem, 0); ok {
					out = append(out, cand)
				}
			}
		}
	}
	return out
}
