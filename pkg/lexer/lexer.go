package lexer

import (
	"unicode/utf8"
)

// Lexer is a mutable cursor over an immutable compiled rule set and an input
// buffer. Compile and States construct it; Reset seeds the input. A Lexer is
// not safe for concurrent use, but Clone produces independent cursors over
// the same compiled states.
type Lexer struct {
	states     map[string]*compiledState
	startState string

	buffer string
	index  int
	line   int
	col    int

	state string
	cur   *compiledState
	stack []string

	// One-token look-ahead used by the fallback protocol: when the regex
	// matches past the cursor, the matched rule parks here while the gap is
	// emitted as a fallback token.
	queued      *rule
	queuedText  string
	queuedThrow bool
}

// Snapshot captures enough of a Lexer's runtime to resume tokenization later
// via Restore, including the state stack and any queued look-ahead.
type Snapshot struct {
	Line  int
	Col   int
	State string
	Stack []string

	queued      *rule
	queuedText  string
	queuedThrow bool
}

func newLexer(states map[string]*compiledState, start string) *Lexer {
	l := &Lexer{states: states, startState: start}
	l.Reset("")
	return l
}

// Reset seeds the buffer and rewinds the cursor to a fresh run: offset zero,
// line 1, column 1, start state, empty stack, cleared queue.
func (l *Lexer) Reset(input string) {
	l.buffer = input
	l.index = 0
	l.line = 1
	l.col = 1
	l.queued = nil
	l.queuedText = ""
	l.queuedThrow = false
	l.stack = l.stack[:0]
	l.state = l.startState
	l.cur = l.states[l.startState]
}

// Restore seeds the buffer and resumes from a snapshot taken by Save. The
// input is the not-yet-consumed remainder from the snapshot's point of view.
func (l *Lexer) Restore(input string, s *Snapshot) {
	l.Reset(input)
	if s == nil {
		return
	}
	l.line = s.Line
	l.col = s.Col
	l.stack = append(l.stack[:0], s.Stack...)
	l.queued = s.queued
	l.queuedText = s.queuedText
	l.queuedThrow = s.queuedThrow
	if cs, ok := l.states[s.State]; ok {
		l.state = s.State
		l.cur = cs
	}
}

// Save captures the current position metadata, state, stack and queued
// look-ahead. Together with the unread input it round-trips through Restore.
func (l *Lexer) Save() *Snapshot {
	return &Snapshot{
		Line:        l.line,
		Col:         l.col,
		State:       l.state,
		Stack:       append([]string(nil), l.stack...),
		queued:      l.queued,
		queuedText:  l.queuedText,
		queuedThrow: l.queuedThrow,
	}
}

// Clone returns a fresh Lexer sharing the immutable compiled states, with a
// cleared runtime.
func (l *Lexer) Clone() *Lexer {
	return newLexer(l.states, l.startState)
}

// SetState swaps in the named compiled state. Unknown or empty names and
// the current state are no-ops.
func (l *Lexer) SetState(name string) {
	if name == "" || name == l.state {
		return
	}
	if cs, ok := l.states[name]; ok {
		l.state = name
		l.cur = cs
	}
}

// PushState remembers the current state and enters the named one.
func (l *Lexer) PushState(name string) {
	l.stack = append(l.stack, l.state)
	l.SetState(name)
}

// PopState returns to the most recently pushed state. Popping an empty stack
// leaves the current state in place.
func (l *Lexer) PopState() {
	if len(l.stack) == 0 {
		return
	}
	name := l.stack[len(l.stack)-1]
	l.stack = l.stack[:len(l.stack)-1]
	l.SetState(name)
}

// Has reports whether the lexer could ever emit a token of the given type.
// Type transforms may mint types the rule list never names, so this stays a
// permissive stub.
func (l *Lexer) Has(kind string) bool {
	return true
}

// Next returns the next token, or (nil, nil) once the input is exhausted. A
// match of a throwing rule returns a *SyntaxError and parks the cursor at the
// end of the buffer, so the following call yields the sentinel.
func (l *Lexer) Next() (*Token, error) {
	// A queued token from a fallback split goes out before the regex runs
	// again; if its rule throws, this is where the deferred failure fires.
	if l.queued != nil {
		g, text := l.queued, l.queuedText
		l.queued = nil
		l.queuedText = ""
		l.queuedThrow = false
		return l.token(g, text, l.index)
	}

	if l.index == len(l.buffer) {
		return nil, nil
	}

	cs := l.cur
	if cs.fast != nil {
		r, size := utf8.DecodeRuneInString(l.buffer[l.index:])
		if g := cs.fast[r]; g != nil {
			return l.token(g, l.buffer[l.index:l.index+size], l.index)
		}
	}

	if cs.fallback {
		return l.nextGlobal(cs)
	}
	return l.nextSticky(cs)
}

// nextSticky matches with the anchored alternation: the match must start at
// the cursor, and a failure hands the rest of the buffer to the error rule.
func (l *Lexer) nextSticky(cs *compiledState) (*Token, error) {
	var loc []int
	if cs.sticky != nil {
		loc = cs.sticky.FindStringSubmatchIndex(l.buffer[l.index:])
	}
	if loc == nil {
		return l.token(cs.errRule, l.buffer[l.index:], l.index)
	}
	g, err := l.matchedGroup(cs, loc)
	if err != nil {
		return nil, err
	}
	return l.token(g, l.buffer[l.index:l.index+loc[1]], l.index)
}

// nextGlobal matches with the unanchored alternation: a match past the cursor
// queues the matched token and emits the gap as one fallback token first, and
// a failure hands the rest of the buffer to the fallback rule.
func (l *Lexer) nextGlobal(cs *compiledState) (*Token, error) {
	var loc []int
	if cs.global != nil {
		loc = cs.global.FindStringSubmatchIndex(l.buffer[l.index:])
	}
	if loc == nil {
		return l.token(cs.errRule, l.buffer[l.index:], l.index)
	}
	g, err := l.matchedGroup(cs, loc)
	if err != nil {
		return nil, err
	}
	start, end := l.index+loc[0], l.index+loc[1]
	text := l.buffer[start:end]
	if loc[0] != 0 {
		l.queued = g
		l.queuedText = text
		l.queuedThrow = g.shouldThrow
		return l.token(cs.errRule, l.buffer[l.index:start], l.index)
	}
	return l.token(g, text, l.index)
}

// matchedGroup resolves a submatch index vector to the rule whose top-level
// capture group participated in the match.
func (l *Lexer) matchedGroup(cs *compiledState, loc []int) (*rule, error) {
	for i, g := range cs.groups {
		if loc[2*(i+1)] >= 0 {
			return g, nil
		}
	}
	return nil, &SyntaxError{msg: "cannot find token type for matched text"}
}

// token builds and accounts for one token: position bookkeeping, type and
// value transforms, state transition, and the throw protocol.
func (l *Lexer) token(g *rule, text string, offset int) (*Token, error) {
	lineBreaks, lastBreak := 0, -1
	if g.lineBreaks {
		for i := 0; i < len(text); i++ {
			if text[i] == '\n' {
				lineBreaks++
				lastBreak = i
			}
		}
	}

	kind := g.defaultType
	if g.typeOf != nil {
		if t := g.typeOf(text); t != "" {
			kind = t
		}
	}
	value := text
	if g.valueOf != nil {
		value = g.valueOf(text)
	}

	tok := &Token{
		Type:       kind,
		Value:      value,
		Text:       text,
		Offset:     offset,
		LineBreaks: lineBreaks,
		Line:       l.line,
		Col:        l.col,
	}

	l.index += len(text)
	l.line += lineBreaks
	if lineBreaks != 0 {
		l.col = len(text) - lastBreak
	} else {
		l.col += len(text)
	}

	if g.shouldThrow {
		// Park the cursor at the end so later calls yield the sentinel
		// instead of raising again.
		l.index = len(l.buffer)
		return nil, &SyntaxError{Token: tok, msg: l.FormatError(tok, "invalid syntax")}
	}

	if g.pop != 0 {
		l.PopState()
	} else if g.push != "" {
		l.PushState(g.push)
	} else if g.next != "" {
		l.SetState(g.next)
	}
	return tok, nil
}

// Tokenize drains the lexer, returning the tokens read so far alongside any
// syntax error.
func (l *Lexer) Tokenize() ([]*Token, error) {
	var tokens []*Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		if tok == nil {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}
