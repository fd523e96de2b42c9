package complete

import (
	"iter"

	"github.com/flowave-io/rsflow/pkg/log"
)

// NoLimit asks Complete for every match the engine produces.
const NoLimit = -1

// Kind classifies what a match refers to.
type Kind int

const (
	KindUnknown Kind = iota
	KindFunction
	KindStruct
	KindEnum
	KindTrait
	KindType
	KindConst
	KindStatic
	KindModule
	KindMacro
	KindLocal
	KindField
	KindVariant
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	KindFunction: "function",
	KindStruct:   "struct",
	KindEnum:     "enum",
	KindTrait:    "trait",
	KindType:     "type",
	KindConst:    "const",
	KindStatic:   "static",
	KindModule:   "module",
	KindMacro:    "macro",
	KindLocal:    "local",
	KindField:    "field",
	KindVariant:  "variant",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Match is one completion candidate. Only the engine interprets it.
type Match struct {
	Text    string  `json:"text"`
	Kind    Kind    `json:"kind"`
	File    string  `json:"file"`
	Pos     BytePos `json:"pos"`
	Context string  `json:"context,omitempty"`
}

// Engine is a completion backend.
type Engine interface {
	// Session opens a query session whose file loads go through cache.
	Session(cache *Cache) Session
}

// Session answers completion queries. Matches are yielded in the engine's
// ranking order.
type Session interface {
	Complete(file string, pos BytePos) iter.Seq[Match]
}

// errSession is implemented by sessions that collect soft per-file failures.
type errSession interface {
	Err() error
}

// Complete returns up to limit matches for fragment injected at the split.
// A negative limit takes every match. The composed source replaces whatever was
// installed under VirtualRoot before.
func (c *CodeCompleter) Complete(fragment string, limit int, cache *Cache, engine Engine) []Match {
	contents, pos := c.Inject(fragment)
	cache.Install(VirtualRoot, contents)

	sess := engine.Session(cache)
	var out []Match
	if limit != 0 {
		for m := range sess.Complete(VirtualRoot, pos) {
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	if es, ok := sess.(errSession); ok {
		if err := es.Err(); err != nil {
			log.Debugw("completion resolved with errors", "pos", int(pos), "err", err)
		}
	}
	return out
}
