package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSortMatchOrdersAlternatives(t *testing.T) {
	tests := []struct {
		name string
		in   []matcher
		want []string
	}{
		{
			"longer literals first",
			[]matcher{{source: "="}, {source: "=="}, {source: "==="}},
			[]string{"===", "==", "="},
		},
		{
			"regexes before literals",
			[]matcher{{source: "abc"}, {source: `[0-9]+`, regex: true}, {source: "x"}},
			[]string{`[0-9]+`, "abc", "x"},
		},
		{
			"regex order is stable",
			[]matcher{{source: `a+`, regex: true}, {source: `b+`, regex: true}},
			[]string{`a+`, `b+`},
		},
		{
			"equal-length literals keep user order",
			[]matcher{{source: "ab"}, {source: "cd"}},
			[]string{"ab", "cd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sortMatch(tt.in)
			got := make([]string, len(tt.in))
			for i, m := range tt.in {
				got[i] = m.source
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPromoteEmbeddedRules(t *testing.T) {
	rules, err := normalizeRules([]Rule{
		{Type: "op", Match: []Pattern{
			Lit("+"),
			Lit("-"),
			Rule{Match: []Pattern{Lit("(")}, Push: "inner"},
			Lit("*"),
		}},
	})
	if err != nil {
		t.Fatalf("normalizeRules failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 normalized rules, got %d", len(rules))
	}

	first := rules[0]
	if first.defaultType != "op" || len(first.match) != 2 || first.push != "" {
		t.Errorf("unexpected leading aggregate: %+v", first)
	}
	embedded := rules[1]
	if embedded.defaultType != "op" || embedded.push != "inner" || len(embedded.match) != 1 {
		t.Errorf("embedded rule did not inherit the type or keep its options: %+v", embedded)
	}
	trailing := rules[2]
	if trailing.defaultType != "op" || len(trailing.match) != 1 || trailing.match[0].source != "*" {
		t.Errorf("unexpected trailing aggregate: %+v", trailing)
	}
}

func TestEmbeddedRuleCanOverrideType(t *testing.T) {
	rules, err := normalizeRules([]Rule{
		{Type: "op", Match: []Pattern{
			Rule{Type: "special", Match: []Pattern{Lit("@")}},
		}},
	})
	if err != nil {
		t.Fatalf("normalizeRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].defaultType != "special" {
		t.Fatalf("expected the embedded type to win, got %+v", rules)
	}
}

func TestRuleWithoutAlternativesKeepsFlags(t *testing.T) {
	rules, err := normalizeRules([]Rule{
		{Type: "oops", Error: true},
	})
	if err != nil {
		t.Fatalf("normalizeRules failed: %v", err)
	}
	r := rules[0]
	if !r.isError || !r.lineBreaks || len(r.match) != 0 {
		t.Errorf("error rule lost its implicit options: %+v", r)
	}
}

func TestFallbackImpliesLineBreaks(t *testing.T) {
	rules, err := normalizeRules([]Rule{
		{Type: "text", Fallback: true},
	})
	if err != nil {
		t.Fatalf("normalizeRules failed: %v", err)
	}
	if !rules[0].lineBreaks {
		t.Error("fallback rule should imply lineBreaks")
	}
}

func TestEmbeddedIncludeRejected(t *testing.T) {
	_, err := normalizeRules([]Rule{
		{Type: "op", Match: []Pattern{Rule{Include: "other"}}},
	})
	if err == nil {
		t.Fatal("expected an error for an embedded include")
	}
}

func TestSingleRune(t *testing.T) {
	tests := []struct {
		m    matcher
		want rune
		ok   bool
	}{
		{matcher{source: "+"}, '+', true},
		{matcher{source: "é"}, 'é', true},
		{matcher{source: "ab"}, 0, false},
		{matcher{source: ""}, 0, false},
		{matcher{source: "a", regex: true}, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.m.singleRune()
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("singleRune(%q, regex=%v) = %q, %v; want %q, %v",
				tt.m.source, tt.m.regex, got, ok, tt.want, tt.ok)
		}
	}
}
