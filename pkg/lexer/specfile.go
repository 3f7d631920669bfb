package lexer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// This file is the YAML front end for lexer specifications. Mapping nodes
// keep document order, so the keyed rule form stays ordered, which matters:
// earlier rules outrank later ones.
//
// A spec file is either stateless:
//
//	rules:
//	  ws: !re "[ \t]+"
//	  op: ["==", "="]
//
// or stateful:
//
//	start: main
//	states:
//	  main:
//	    lpar: {match: "(", push: inner}
//	  inner:
//	    rpar: {match: ")", pop: 1}
//	  $all:
//	    comment: !re "#[^\n]*"
//
// Plain scalars are literal strings; the !re tag marks a regex source. A rule
// value may be a scalar, a sequence mixing scalars and option mappings, or a
// single option mapping.

// LoadSpecFile reads and compiles a YAML lexer specification.
func LoadSpecFile(filename string) (*Lexer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file '%s': %w", filename, err)
	}
	l, err := ParseSpec(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spec file '%s': %w", filename, err)
	}
	return l, nil
}

// ParseSpec compiles a YAML lexer specification.
func ParseSpec(data []byte) (*Lexer, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty spec")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("spec must be a mapping with a 'rules' or 'states' key")
	}

	var start string
	var statesNode, rulesNode *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "start":
			start = value.Value
		case "states":
			statesNode = value
		case "rules":
			rulesNode = value
		default:
			return nil, fmt.Errorf("unknown top-level key '%s'", key.Value)
		}
	}

	switch {
	case rulesNode != nil && statesNode != nil:
		return nil, fmt.Errorf("'rules' and 'states' are mutually exclusive")
	case rulesNode != nil:
		rules, err := parseStateNode(rulesNode)
		if err != nil {
			return nil, err
		}
		return Compile(rules)
	case statesNode != nil:
		if statesNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("'states' must be a mapping")
		}
		var states []StateRules
		for i := 0; i+1 < len(statesNode.Content); i += 2 {
			name := statesNode.Content[i].Value
			rules, err := parseStateNode(statesNode.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("state '%s': %w", name, err)
			}
			states = append(states, StateRules{Name: name, Rules: rules})
		}
		return States(states, start)
	default:
		return nil, fmt.Errorf("spec needs a 'rules' or 'states' key")
	}
}

// parseStateNode reads one state's rules, in either the keyed mapping form or
// the ordered list form.
func parseStateNode(n *yaml.Node) ([]Rule, error) {
	switch n.Kind {
	case yaml.MappingNode:
		var rules []Rule
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Value == "include" {
				includes, err := scalarList(value)
				if err != nil {
					return nil, fmt.Errorf("include: %w", err)
				}
				for _, target := range includes {
					rules = append(rules, Rule{Include: target})
				}
				continue
			}
			rule, err := parseRuleValue(key.Value, value)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
		return rules, nil
	case yaml.SequenceNode:
		var rules []Rule
		for i, item := range n.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("rule %d: list entries must be mappings", i)
			}
			rule, err := parseListEntry(item)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			rules = append(rules, rule)
		}
		return rules, nil
	default:
		return nil, fmt.Errorf("rules must be a mapping or a list")
	}
}

// parseRuleValue reads the value side of a keyed rule: a pattern scalar, a
// sequence of alternatives, or an option mapping.
func parseRuleValue(kind string, n *yaml.Node) (Rule, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Rule{Type: kind, Match: []Pattern{scalarPattern(n)}}, nil
	case yaml.SequenceNode:
		var match []Pattern
		for _, item := range n.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				match = append(match, scalarPattern(item))
			case yaml.MappingNode:
				sub, err := parseOptions("", item)
				if err != nil {
					return Rule{}, fmt.Errorf("in token '%s': %w", kind, err)
				}
				match = append(match, sub)
			default:
				return Rule{}, fmt.Errorf("in token '%s': alternatives must be scalars or mappings", kind)
			}
		}
		return Rule{Type: kind, Match: match}, nil
	case yaml.MappingNode:
		rule, err := parseOptions(kind, n)
		if err != nil {
			return Rule{}, fmt.Errorf("in token '%s': %w", kind, err)
		}
		return rule, nil
	default:
		return Rule{}, fmt.Errorf("in token '%s': unsupported rule value", kind)
	}
}

// parseListEntry reads one entry of the list rule form, which names its kind
// through a 'type' field or is an include.
func parseListEntry(m *yaml.Node) (Rule, error) {
	var kind, include string
	rest := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		switch key.Value {
		case "type":
			if value.Kind != yaml.ScalarNode || value.Value == "" {
				return Rule{}, fmt.Errorf("'type' must name the token kind")
			}
			kind = value.Value
		case "include":
			include = value.Value
		default:
			rest.Content = append(rest.Content, key, value)
		}
	}
	if include != "" {
		if kind != "" || len(rest.Content) > 0 {
			return Rule{}, fmt.Errorf("include '%s' cannot be combined with other options", include)
		}
		return Rule{Include: include}, nil
	}
	if kind == "" {
		return Rule{}, fmt.Errorf("missing type")
	}
	rule, err := parseOptions(kind, rest)
	if err != nil {
		return Rule{}, fmt.Errorf("in token '%s': %w", kind, err)
	}
	return rule, nil
}

// parseOptions reads an option mapping into a Rule. An empty kind leaves the
// type to be inherited from the enclosing rule (the embedded-object form).
func parseOptions(kind string, m *yaml.Node) (Rule, error) {
	rule := Rule{Type: kind}
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		switch key.Value {
		case "match":
			alts, err := scalarList(value)
			if err != nil {
				return Rule{}, fmt.Errorf("match: %w", err)
			}
			for j, alt := range alts {
				if patternTag(value, j) == "!re" {
					rule.Match = append(rule.Match, Re(alt))
				} else {
					rule.Match = append(rule.Match, Lit(alt))
				}
			}
		case "pattern":
			alts, err := scalarList(value)
			if err != nil {
				return Rule{}, fmt.Errorf("pattern: %w", err)
			}
			for _, alt := range alts {
				rule.Match = append(rule.Match, Re(alt))
			}
		case "lineBreaks":
			if err := value.Decode(&rule.LineBreaks); err != nil {
				return Rule{}, fmt.Errorf("lineBreaks: %w", err)
			}
		case "push":
			rule.Push = value.Value
		case "next":
			rule.Next = value.Value
		case "pop":
			if err := value.Decode(&rule.Pop); err != nil {
				return Rule{}, fmt.Errorf("pop: %w", err)
			}
		case "error":
			if err := value.Decode(&rule.Error); err != nil {
				return Rule{}, fmt.Errorf("error: %w", err)
			}
		case "fallback":
			if err := value.Decode(&rule.Fallback); err != nil {
				return Rule{}, fmt.Errorf("fallback: %w", err)
			}
		case "throw":
			if err := value.Decode(&rule.Throw); err != nil {
				return Rule{}, fmt.Errorf("throw: %w", err)
			}
		case "keywords":
			byType, err := keywordTable(value)
			if err != nil {
				return Rule{}, err
			}
			rule.TypeOf = Keywords(byType)
		case "type":
			// Inside an option mapping, 'type' would be a transform, and a
			// transform cannot be a literal string.
			return Rule{}, fmt.Errorf("type transform cannot be a string (use 'keywords' or the programmatic API)")
		default:
			return Rule{}, fmt.Errorf("unknown option '%s'", key.Value)
		}
	}
	return rule, nil
}

// keywordTable reads a keywords mapping of token type to literal(s).
func keywordTable(n *yaml.Node) (map[string][]string, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("keywords must be a mapping")
	}
	byType := make(map[string][]string)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		words, err := scalarList(value)
		if err != nil {
			return nil, fmt.Errorf("keywords for '%s': %w", key.Value, err)
		}
		byType[key.Value] = words
	}
	return byType, nil
}

// scalarPattern turns one pattern scalar into a literal or, under the !re
// tag, a regex.
func scalarPattern(n *yaml.Node) Pattern {
	if n.Tag == "!re" {
		return Re(n.Value)
	}
	return Lit(n.Value)
}

// scalarList accepts a scalar or a sequence of scalars and returns the
// values. Non-string scalars (numbers, booleans) are rejected: every keyword
// and pattern is text.
func scalarList(n *yaml.Node) ([]string, error) {
	items := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		items = n.Content
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected a string, got a %s", kindName(item.Kind))
		}
		switch item.Tag {
		case "!!str", "!re", "":
			out = append(out, item.Value)
		default:
			return nil, fmt.Errorf("expected a string, got %s '%s'", item.Tag, item.Value)
		}
	}
	return out, nil
}

// patternTag returns the tag of the j-th scalar behind a match value, which
// may be the scalar itself or a sequence.
func patternTag(n *yaml.Node, j int) string {
	if n.Kind == yaml.SequenceNode {
		if j < len(n.Content) {
			return n.Content[j].Tag
		}
		return ""
	}
	return n.Tag
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "node"
	}
}
