package sermonhelper

import "github.com/flockhq/flock/internal/app/domain/plan"

// Kind selects a suggestion category.
type Kind string

const (
	KindScripture Kind = "scripture"
	KindOutline   Kind = "outline"
	KindHymns     Kind = "hymns"
)

// AllKinds is used when a request names none.
var AllKinds = []Kind{KindScripture, KindOutline, KindHymns}

func (k Kind) Valid() bool {
	return k == KindScripture || k == KindOutline || k == KindHymns
}

// Request is a caller's ask for sermon preparation help.
type Request struct {
	Topic   string `json:"topic"`
	Passage string `json:"passage,omitempty"`
	Kinds   []Kind `json:"kinds,omitempty"`
}

// Prompt is what a Suggester receives: the request plus the tenant's
// theology profile.
type Prompt struct {
	Topic            string `json:"topic"`
	Passage          string `json:"passage,omitempty"`
	Kinds            []Kind `json:"kinds"`
	Tradition        string `json:"tradition"`
	Translation      string `json:"translation"`
	MaxOutlinePoints int    `json:"max_outline_points"`
}

// Wants reports whether kind was requested.
func (p Prompt) Wants(kind Kind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Hymn is a suggested hymn. Empty Traditions means suitable for any.
type Hymn struct {
	Title      string   `json:"title" yaml:"title"`
	Author     string   `json:"author,omitempty" yaml:"author"`
	Year       int      `json:"year,omitempty" yaml:"year"`
	Traditions []string `json:"traditions,omitempty" yaml:"traditions"`
}

// Suggestions is a Suggester's raw output.
type Suggestions struct {
	Scripture  []string
	Outline    []string
	Hymns      []Hymn
	TokensUsed int64
}

// ScriptureRef is a passage annotated with the preferred translation.
type ScriptureRef struct {
	Reference   string `json:"reference"`
	Translation string `json:"translation"`
}

// Result is what Suggest returns after guardrails.
type Result struct {
	Scripture  []ScriptureRef `json:"scripture"`
	Outline    []string       `json:"outline"`
	Hymns      []Hymn         `json:"hymns"`
	Filtered   int            `json:"filtered"`
	TokensUsed int64          `json:"tokens_used"`
	Quota      plan.Quota     `json:"quota"`
}
