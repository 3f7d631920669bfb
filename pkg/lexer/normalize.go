package lexer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// matcher is one compiled-ready alternative.
type matcher struct {
	source string
	regex  bool
}

// rule is the normalized form of a Rule. Compiled states reference these by
// pointer; identity matters for include deduplication.
type rule struct {
	defaultType string
	match       []matcher
	typeOf      func(string) string
	valueOf     func(string) string
	lineBreaks  bool
	push        string
	pop         int
	next        string
	isError     bool
	isFallback  bool
	shouldThrow bool
	include     string
}

// normalizeRules turns a user rule list into the canonical ordered rule list,
// applying defaults, promoting embedded rules, sorting alternatives and
// rejecting ill-formed entries.
func normalizeRules(rules []Rule) ([]*rule, error) {
	var out []*rule
	for i, r := range rules {
		if r.Include != "" {
			if len(r.Match) > 0 {
				return nil, fmt.Errorf("rule %d: include '%s' cannot be combined with match alternatives", i, r.Include)
			}
			out = append(out, &rule{include: r.Include})
			continue
		}
		if r.Type == "" {
			return nil, fmt.Errorf("rule %d: missing type", i)
		}
		promoted, err := promoteRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", r.Type, err)
		}
		out = append(out, promoted...)
	}
	return out, nil
}

// promoteRule splits one user rule into normalized rules: each embedded Rule
// alternative becomes its own rule, and every run of plain alternatives
// aggregates into one rule carrying the parent's options. User order is kept.
func promoteRule(r Rule) ([]*rule, error) {
	var out []*rule
	var run []matcher
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		nr, err := ruleOptions(r, run)
		if err != nil {
			return err
		}
		out = append(out, nr)
		run = nil
		return nil
	}
	for _, p := range r.Match {
		switch alt := p.(type) {
		case Lit:
			run = append(run, matcher{source: string(alt)})
		case Re:
			run = append(run, matcher{source: string(alt), regex: true})
		case Rule:
			if err := flush(); err != nil {
				return nil, err
			}
			if alt.Include != "" {
				return nil, fmt.Errorf("embedded alternative cannot be an include")
			}
			if alt.Type == "" {
				alt.Type = r.Type
			}
			sub, err := promoteRule(alt)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		default:
			return nil, fmt.Errorf("unsupported pattern alternative %T", p)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// A rule with no alternatives still participates through its flags.
		nr, err := ruleOptions(r, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, nr)
	}
	return out, nil
}

// ruleOptions validates one rule's options and sorts its alternatives.
func ruleOptions(r Rule, match []matcher) (*rule, error) {
	if r.Error && r.Fallback {
		return nil, fmt.Errorf("cannot be both an error rule and a fallback rule")
	}
	if r.Pop != 0 && r.Pop != 1 {
		return nil, fmt.Errorf("pop must be 1 (got %d)", r.Pop)
	}
	transitions := 0
	if r.Push != "" {
		transitions++
	}
	if r.Pop != 0 {
		transitions++
	}
	if r.Next != "" {
		transitions++
	}
	if transitions > 1 {
		return nil, fmt.Errorf("at most one of push, pop and next may be set")
	}
	if !(r.LineBreaks || r.Error || r.Fallback) {
		for _, m := range match {
			if !m.regex && strings.Contains(m.source, "\n") {
				return nil, fmt.Errorf("literal %q contains a newline, but the rule does not set lineBreaks", m.source)
			}
		}
	}
	sortMatch(match)
	return &rule{
		defaultType: r.Type,
		match:       match,
		typeOf:      r.TypeOf,
		valueOf:     r.ValueOf,
		lineBreaks:  r.LineBreaks || r.Error || r.Fallback,
		push:        r.Push,
		pop:         r.Pop,
		next:        r.Next,
		isError:     r.Error,
		isFallback:  r.Fallback,
		shouldThrow: r.Throw,
	}, nil
}

// sortMatch orders one rule's alternatives so that regexes precede literals
// and longer literals precede shorter ones. Ties keep user order. Rules are
// never reordered relative to each other.
func sortMatch(match []matcher) {
	sort.SliceStable(match, func(i, j int) bool {
		a, b := match[i], match[j]
		switch {
		case a.regex && b.regex:
			return false
		case a.regex != b.regex:
			return a.regex
		default:
			return len(a.source) > len(b.source)
		}
	})
}

// singleRune reports whether a literal alternative is exactly one rune, and
// returns it. Such alternatives are eligible for the fast dispatch table.
func (m matcher) singleRune() (rune, bool) {
	if m.regex {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(m.source)
	if size == 0 || size != len(m.source) || r == utf8.RuneError && size == 1 {
		return 0, false
	}
	return r, true
}
