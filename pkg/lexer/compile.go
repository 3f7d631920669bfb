package lexer

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// compiledState is the immutable per-state unit produced by the compiler:
// the combined alternation in both anchoring modes, the ordered rules backing
// its capture groups, the single-rune dispatch table and the error slot.
type compiledState struct {
	// sticky is the \A-anchored alternation, applied to the unread tail of
	// the buffer so every match starts at the cursor. nil when no rule
	// contributes a pattern.
	sticky *regexp.Regexp

	// global is the unanchored variant, compiled only when a fallback rule
	// exists; it may match past the cursor, leaving a gap.
	global *regexp.Regexp

	// groups holds the rules backing the alternation's top-level capture
	// groups, in order. Rules with no patterns left are excluded.
	groups []*rule

	// fast dispatches a single rune directly to a rule. nil when a fallback
	// rule exists.
	fast map[rune]*rule

	// errRule is the state's error or fallback rule, synthesized when the
	// spec declares neither.
	errRule *rule

	// fallback records which anchoring mode the engine must use.
	fallback bool
}

// compileRules builds one state's compiled unit from a normalized rule list.
func compileRules(rules []*rule, hasStates bool) (*compiledState, error) {
	cs := &compiledState{}
	for _, r := range rules {
		if r.isFallback {
			cs.fallback = true
		}
	}
	// A fallback rule disables fast dispatch: the regex must get a chance to
	// match ahead of the cursor even when the next rune has a fast entry.
	fastAllowed := !cs.fallback
	if fastAllowed {
		cs.fast = make(map[rune]*rule)
	}

	var parts []string
	for _, r := range rules {
		if r.include != "" {
			return nil, fmt.Errorf("include '%s' is only allowed in stateful lexers", r.include)
		}
		if r.isError || r.isFallback {
			if cs.errRule != nil {
				return nil, fmt.Errorf("rules '%s' and '%s' both claim the error role", cs.errRule.defaultType, r.defaultType)
			}
			cs.errRule = r
		}
		if r.push != "" || r.pop != 0 || r.next != "" {
			if !hasStates {
				return nil, fmt.Errorf("rule '%s' has a state transition but the lexer is stateless", r.defaultType)
			}
			if r.isFallback {
				return nil, fmt.Errorf("fallback rule '%s' cannot have a state transition", r.defaultType)
			}
		}

		// Peel leading single-rune literals into the fast table. Once any
		// rule contributes to the regex, later rules must go through it too,
		// or they could jump the priority queue.
		match := r.match
		if fastAllowed {
			for len(match) > 0 {
				c, ok := match[0].singleRune()
				if !ok {
					break
				}
				cs.fast[c] = r
				match = match[1:]
			}
		}
		if len(match) == 0 {
			continue
		}
		fastAllowed = false

		sub, err := rulePattern(r, match)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", r.defaultType, err)
		}
		cs.groups = append(cs.groups, r)
		parts = append(parts, "("+sub+")")
	}

	if cs.errRule == nil {
		cs.errRule = &rule{defaultType: "error", lineBreaks: true, shouldThrow: true}
	}

	if len(parts) > 0 {
		combined := strings.Join(parts, "|")
		sticky, err := regexp.Compile(`\A(?:` + combined + `)`)
		if err != nil {
			return nil, fmt.Errorf("combined pattern failed to compile: %w", err)
		}
		cs.sticky = sticky
		if cs.fallback {
			global, err := regexp.Compile(combined)
			if err != nil {
				return nil, fmt.Errorf("combined pattern failed to compile: %w", err)
			}
			cs.global = global
		}
	}
	return cs, nil
}

// rulePattern assembles one rule's alternation and validates it: alternatives
// are wrapped non-capturing and joined, the result must not match the empty
// string, and it must not match a newline unless the rule allows them.
func rulePattern(r *rule, match []matcher) (string, error) {
	alts := make([]string, len(match))
	for i, m := range match {
		if m.regex {
			if err := vetPattern(m.source); err != nil {
				return "", err
			}
			alts[i] = "(?:" + m.source + ")"
		} else {
			alts[i] = "(?:" + regexp.QuoteMeta(m.source) + ")"
		}
	}
	sub := strings.Join(alts, "|")
	probe, err := regexp.Compile("(?:" + sub + ")")
	if err != nil {
		return "", fmt.Errorf("invalid pattern /%s/: %w", sub, err)
	}
	if probe.FindStringIndex("") != nil {
		return "", fmt.Errorf("pattern /%s/ should not match the empty string", sub)
	}
	if !r.lineBreaks && probe.MatchString("\n") {
		return "", fmt.Errorf("pattern /%s/ matches a newline, but the rule does not set lineBreaks", sub)
	}
	return sub, nil
}

// vetPattern parses a regex alternative and rejects constructs the engine
// reserves for itself: capture groups (group numbering must stay one group
// per rule) and anchors (anchoring is decided by the fallback mode).
func vetPattern(src string) error {
	tree, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		return fmt.Errorf("invalid pattern /%s/: %w", src, err)
	}
	if what := forbiddenOp(tree); what != "" {
		return fmt.Errorf("pattern /%s/ contains %s", src, what)
	}
	return nil
}

func forbiddenOp(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpCapture:
		return "a capture group; use (?:...) instead"
	case syntax.OpBeginText, syntax.OpEndText:
		return "an anchor; anchoring is handled by the engine"
	case syntax.OpBeginLine, syntax.OpEndLine:
		return "a multiline anchor; anchoring is handled by the engine"
	}
	for _, sub := range re.Sub {
		if what := forbiddenOp(sub); what != "" {
			return what
		}
	}
	return ""
}
