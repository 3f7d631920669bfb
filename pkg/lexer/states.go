package lexer

import "fmt"

// StartState is the name of the sole state of a stateless lexer.
const StartState = "start"

// AllStates is the reserved state name whose rules are merged into every
// other state.
const AllStates = "$all"

// StateRules names one state and its rule list. States lists one per entry
// because state order is significant: the first state is the default start.
type StateRules struct {
	Name  string
	Rules []Rule
}

// Compile builds a stateless lexer from an ordered rule list. The resulting
// lexer has a single state named start.
func Compile(rules []Rule) (*Lexer, error) {
	normalized, err := normalizeRules(rules)
	if err != nil {
		return nil, err
	}
	cs, err := compileRules(normalized, false)
	if err != nil {
		return nil, err
	}
	states := map[string]*compiledState{StartState: cs}
	return newLexer(states, StartState), nil
}

// States builds a stateful lexer. The reserved $all entry merges into every
// state; include entries splice another state's rules in place. An empty
// start defaults to the first declared state.
func States(states []StateRules, start string) (*Lexer, error) {
	var all []*rule
	var names []string
	ruleMap := make(map[string][]*rule)

	for _, s := range states {
		if s.Name == AllStates {
			normalized, err := normalizeRules(s.Rules)
			if err != nil {
				return nil, fmt.Errorf("state '%s': %w", AllStates, err)
			}
			all = normalized
			continue
		}
		if _, dup := ruleMap[s.Name]; dup {
			return nil, fmt.Errorf("state '%s' is declared twice", s.Name)
		}
		normalized, err := normalizeRules(s.Rules)
		if err != nil {
			return nil, fmt.Errorf("state '%s': %w", s.Name, err)
		}
		names = append(names, s.Name)
		ruleMap[s.Name] = normalized
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no states given")
	}
	if start == "" {
		start = names[0]
	}
	if _, ok := ruleMap[start]; !ok {
		return nil, fmt.Errorf("unknown start state '%s'", start)
	}

	// The $all rules are appended as the same rule values to every state, so
	// include expansion can recognize and skip them by identity.
	for _, name := range names {
		ruleMap[name] = append(ruleMap[name], all...)
	}

	for _, name := range names {
		if err := expandIncludes(name, ruleMap); err != nil {
			return nil, err
		}
	}

	compiled := make(map[string]*compiledState, len(names))
	for _, name := range names {
		cs, err := compileRules(ruleMap[name], true)
		if err != nil {
			return nil, fmt.Errorf("state '%s': %w", name, err)
		}
		compiled[name] = cs
	}

	for _, name := range names {
		cs := compiled[name]
		for _, g := range cs.groups {
			if err := checkStateGroup(g, name, compiled); err != nil {
				return nil, err
			}
		}
		for _, g := range cs.fast {
			if err := checkStateGroup(g, name, compiled); err != nil {
				return nil, err
			}
		}
	}

	return newLexer(compiled, start), nil
}

// expandIncludes splices included states' rules into one state, in place.
// Each include target expands at most once per state, which both guards
// against cycles and keeps repeated includes harmless; rules already present
// (by identity) are skipped, and self-includes simply vanish.
func expandIncludes(name string, ruleMap map[string][]*rule) error {
	included := make(map[string]bool)
	rules := ruleMap[name]
	for i := 0; i < len(rules); {
		r := rules[i]
		if r.include == "" {
			i++
			continue
		}
		var insert []*rule
		if r.include != name && !included[r.include] {
			included[r.include] = true
			source, ok := ruleMap[r.include]
			if !ok {
				return fmt.Errorf("cannot include nonexistent state '%s' (in state '%s')", r.include, name)
			}
			for _, candidate := range source {
				if containsRule(rules, candidate) {
					continue
				}
				insert = append(insert, candidate)
			}
		}
		spliced := make([]*rule, 0, len(rules)-1+len(insert))
		spliced = append(spliced, rules[:i]...)
		spliced = append(spliced, insert...)
		spliced = append(spliced, rules[i+1:]...)
		rules = spliced
		// Do not advance: spliced-in rules may carry includes of their own.
	}
	ruleMap[name] = rules
	return nil
}

func containsRule(rules []*rule, r *rule) bool {
	for _, existing := range rules {
		if existing == r {
			return true
		}
	}
	return false
}

// checkStateGroup verifies a rule's transition targets against the final
// state map. Existence checks run here because includes may legitimately
// reference states forward.
func checkStateGroup(g *rule, state string, states map[string]*compiledState) error {
	target := g.push
	if target == "" {
		target = g.next
	}
	if target != "" {
		if _, ok := states[target]; !ok {
			return fmt.Errorf("missing state '%s' (in rule '%s' of state '%s')", target, g.defaultType, state)
		}
	}
	return nil
}
