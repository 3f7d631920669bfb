package lexer

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParseSpec(t *testing.T, spec string) *Lexer {
	t.Helper()
	lx, err := ParseSpec([]byte(spec))
	if err != nil {
		t.Fatalf("ParseSpec failed: %v", err)
	}
	return lx
}

func TestParseStatelessMappingForm(t *testing.T) {
	lx := mustParseSpec(t, `
rules:
  ws: !re '[ ]+'
  number: !re '[0-9]+'
  op: ['==', '=']
`)
	got := summarize(drain(t, lx, "1 == 2"))
	want := []summary{
		{"number", "1", 0},
		{"ws", " ", 1},
		{"op", "==", 2},
		{"ws", " ", 4},
		{"number", "2", 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestParseListForm(t *testing.T) {
	lx := mustParseSpec(t, `
rules:
  - type: ws
    pattern: '[ ]+'
  - type: word
    pattern: '[a-z]+'
`)
	got := summarize(drain(t, lx, "a b"))
	want := []summary{
		{"word", "a", 0},
		{"ws", " ", 1},
		{"word", "b", 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatefulSpec(t *testing.T) {
	lx := mustParseSpec(t, `
start: main
states:
  main:
    word: !re '\w+'
    lpar: {match: '(', push: inner}
  inner:
    thing: !re '\w+'
    lpar: {match: '(', push: inner}
    rpar: {match: ')', pop: 1}
  $all:
    ws: !re '[ ]+'
`)
	var kinds []string
	for _, tok := range drain(t, lx, "a (b (c) d)") {
		kinds = append(kinds, tok.Type)
	}
	want := []string{"word", "ws", "lpar", "thing", "ws", "lpar", "thing", "rpar", "ws", "thing", "rpar"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kind sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIncludeInSpec(t *testing.T) {
	lx := mustParseSpec(t, `
states:
  main:
    include: shared
    any: !re '\S+'
  shared:
    num: !re '[0-9]+'
`)
	lx.Reset("42")
	tok, err := lx.Next()
	if err != nil || tok == nil || tok.Type != "num" {
		t.Errorf("expected the included num rule, got %+v, %v", tok, err)
	}
}

func TestParseKeywordsOption(t *testing.T) {
	lx := mustParseSpec(t, `
rules:
  ident:
    pattern: '[a-zA-Z]+'
    keywords:
      kw: [class, def]
`)
	lx.Reset("class")
	tok, err := lx.Next()
	if err != nil || tok == nil || tok.Type != "kw" {
		t.Errorf("expected the keyword type, got %+v, %v", tok, err)
	}
}

func TestParseMixedAlternativesPromote(t *testing.T) {
	lx := mustParseSpec(t, `
states:
  main:
    paren:
      - '['
      - {match: '(', push: inner}
  inner:
    rpar: {match: ')', pop: 1}
    include: main
`)
	var kinds []string
	for _, tok := range drain(t, lx, "[([)") {
		kinds = append(kinds, tok.Type)
	}
	want := []string{"paren", "paren", "paren", "rpar"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kind sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFallbackOption(t *testing.T) {
	lx := mustParseSpec(t, `
rules:
  op: !re '[._]'
  text: {fallback: true}
`)
	got := summarize(drain(t, lx, ".ab_"))
	want := []summary{
		{"op", ".", 0},
		{"text", "ab", 1},
		{"op", "_", 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLineBreaksOption(t *testing.T) {
	lx := mustParseSpec(t, `
rules:
  word: !re '[a-z]+'
  nl: {match: "\n", lineBreaks: true}
`)
	tokens := drain(t, lx, "a\nb")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %v", summarize(tokens))
	}
	if tokens[2].Line != 2 || tokens[2].Col != 1 {
		t.Errorf("expected b at line 2 col 1, got line %d col %d", tokens[2].Line, tokens[2].Col)
	}
}

func TestParseSpecErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr string
	}{
		{
			"unknown top-level key",
			"lexer:\n  a: b\n",
			"unknown top-level key",
		},
		{
			"rules and states together",
			"rules:\n  a: x\nstates:\n  main:\n    a: x\n",
			"mutually exclusive",
		},
		{
			"neither rules nor states",
			"start: main\n",
			"'rules' or 'states'",
		},
		{
			"unknown option",
			"rules:\n  a: {match: x, color: red}\n",
			"unknown option 'color'",
		},
		{
			"string type transform",
			"rules:\n  a: {match: x, type: b}\n",
			"type transform cannot be a string",
		},
		{
			"non-string keyword",
			"rules:\n  ident: {pattern: '[a-z]+', keywords: {kw: [1, 2]}}\n",
			"expected a string",
		},
		{
			"list entry without type",
			"rules:\n  - pattern: '[a-z]+'\n",
			"missing type",
		},
		{
			"list entry not a mapping",
			"rules:\n  - just-a-string\n",
			"must be mappings",
		},
		{
			"invalid yaml",
			"rules: [unclosed\n",
			"invalid YAML",
		},
		{
			"include with options in list form",
			"rules:\n  - include: other\n    pattern: x\n",
			"cannot be combined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec([]byte(tt.spec))
			if err == nil {
				t.Fatalf("expected an error containing %q, got none", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestExpressionLanguage runs a full spec with a string sub-state, escapes
// and keywords over a small program, checking the reassembled text.
func TestExpressionLanguage(t *testing.T) {
	lx := mustParseSpec(t, `
start: main
states:
  main:
    ws: !re '[ \t]+'
    nl: {match: "\n", lineBreaks: true}
    comment: !re '//[^\n]*'
    number: !re '[0-9]+(?:\.[0-9]+)?'
    dqstring: {match: '"', push: string}
    ident:
      pattern: '[A-Za-z_][A-Za-z0-9_]*'
      keywords:
        keyword: [if, else, while, return]
    op: ['==', '!=', '<=', '>=', '=', '+', '-', '*', '/', '(', ')', '{', '}']
  string:
    chars: !re '(?:[^"\\\n]|\\.)+'
    close: {match: '"', pop: 1}
`)
	program := "if x == 1 {\n  msg = \"say \\\"hi\\\"\" // greet\n}\n"
	tokens := drain(t, lx, program)

	var rebuilt strings.Builder
	for _, tok := range tokens {
		rebuilt.WriteString(tok.Text)
	}
	if rebuilt.String() != program {
		t.Errorf("tokens do not reassemble the program:\n%q\n%q", rebuilt.String(), program)
	}

	var kinds []string
	for _, tok := range tokens {
		kinds = append(kinds, tok.Type)
	}
	want := []string{
		"keyword", "ws", "ident", "ws", "op", "ws", "number", "ws", "op", "nl",
		"ws", "ident", "ws", "op", "ws",
		"dqstring", "chars", "close", "ws", "comment", "nl",
		"op", "nl",
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kind sequence mismatch (-want +got):\n%s", diff)
	}
}
