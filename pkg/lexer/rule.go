package lexer

// A Pattern is one alternative of a rule: a literal string, a regular
// expression source, or an embedded Rule that overrides options for the
// alternatives it carries.
type Pattern interface {
	pattern()
}

// Lit is a literal string alternative. It matches its exact text.
type Lit string

func (Lit) pattern() {}

// Re is a regular expression alternative, in Go regexp (RE2) syntax. The
// source may not contain capture groups; use (?:...) for grouping. Anchors
// are supplied by the engine and are rejected inside rule patterns.
type Re string

func (Re) pattern() {}

// A Rule describes one token type. In a rule list the Type names the token
// kind; a Rule may also appear inside another rule's Match, where it is
// promoted to its own rule and inherits the parent's Type unless it sets one.
type Rule struct {
	// Type is the token kind emitted by default.
	Type string

	// Match lists the pattern alternatives in user order. A rule with no
	// alternatives takes part only through its Error or Fallback flag.
	Match []Pattern

	// TypeOf, when set, maps matched text to a token type; an empty result
	// falls back to Type. Keywords builds such functions.
	TypeOf func(text string) string

	// ValueOf, when set, maps matched text to the token's value.
	ValueOf func(text string) string

	// LineBreaks declares that matched text may contain newlines. Error and
	// Fallback rules get it implicitly.
	LineBreaks bool

	// Push enters the named state, remembering the current one.
	Push string
	// Pop returns to the remembered state. The only accepted value is 1.
	Pop int
	// Next moves to the named state without touching the stack.
	Next string

	// Error marks the rule that consumes remaining input when nothing else
	// matches.
	Error bool
	// Fallback marks the rule that consumes the gap between the cursor and
	// the next successful match.
	Fallback bool
	// Throw makes a match of this rule raise a syntax error after the token
	// is accounted for.
	Throw bool

	// Include splices the rules of the named state in place of this entry.
	// It cannot be combined with Match; the entry's other fields are ignored.
	Include string
}

func (Rule) pattern() {}

// ErrorRule and FallbackRule are shorthand rule bodies for the two special
// roles. They carry no Type: a copy placed in a rule list needs its Type set,
// since a list entry without a Type is rejected.
var (
	ErrorRule    = Rule{Error: true}
	FallbackRule = Rule{Fallback: true}
)
