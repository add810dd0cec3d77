package tokenizer

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Position represents a line and column position in the source file.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Span represents the start and end positions of a token.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// MarshalJSON implements custom JSON marshaling for Span.
func (s Span) MarshalJSON() ([]byte, error) {
	arr := [4]int{s.Start.Line, s.Start.Col, s.End.Line, s.End.Col}
	return json.Marshal(arr)
}

// UnmarshalJSON implements custom JSON unmarshaling for Span.
func (s *Span) UnmarshalJSON(data []byte) error {
	var arr [4]int
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	s.Start = Position{Line: arr[0], Col: arr[1]}
	s.End = Position{Line: arr[2], Col: arr[3]}
	return nil
}

// Token represents one classified span of the source. A nil Kind is
// untagged passthrough text.
type Token struct {
	Kind    *string `json:"kind,omitempty"`
	Text    string  `json:"text"`
	Span    Span    `json:"span"`
	Escaped bool    `json:"escaped,omitempty"`
}

// NewToken creates a new token. An empty kind leaves the token untagged.
func NewToken(kind, text string, span Span) *Token {
	t := &Token{Text: text, Span: span}
	if kind != "" {
		t.Kind = &kind
	}
	return t
}

// KindName returns the kind, or "" for untagged text.
func (t *Token) KindName() string {
	if t.Kind == nil {
		return ""
	}
	return *t.Kind
}

// Escape replaces &, < and > in the text with entities. Escaping a token
// that is already escaped does nothing.
func (t *Token) Escape() {
	if t.Escaped {
		return
	}
	t.Text = EscapeString(t.Text)
	t.Escaped = true
}

// Unescape reverses Escape.
func (t *Token) Unescape() {
	if !t.Escaped {
		return
	}
	t.Text = UnescapeString(t.Text)
	t.Escaped = false
}

var (
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// EscapeString turns &, < and > into entities.
func EscapeString(s string) string {
	return escaper.Replace(s)
}

// UnescapeString turns the entities written by EscapeString back into
// characters.
func UnescapeString(s string) string {
	return unescaper.Replace(s)
}

// normalizeNewlines turns \r\n and lone \r into \n.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// TagBlock wraps text in <tag></tag>. With separateLines every line is
// wrapped on its own, which keeps line-based formatters happy.
func TagBlock(tag, text string, separateLines bool) string {
	if tag == "" || text == "" {
		return text
	}
	open, close := "<"+tag+">", "</"+tag+">"
	if separateLines {
		text = strings.ReplaceAll(text, "\n", close+"\n"+open)
	}
	return open + text + close
}

// ParseTagged splits a tagged string into tokens. Each token carries the
// innermost enclosing tag as its kind; text keeps its entities and the
// tokens are marked as escaped. Spans count lines and columns of the
// unescaped text, starting at 1:1.
func ParseTagged(tagged string) []*Token {
	var (
		tokens []*Token
		stack  []string
		pos    = Position{Line: 1, Col: 1}
	)
	emit := func(text string) {
		if text == "" {
			return
		}
		start := pos
		pos = advance(pos, UnescapeString(text))
		kind := ""
		if len(stack) > 0 {
			kind = stack[len(stack)-1]
		}
		tok := NewToken(kind, text, Span{Start: start, End: pos})
		tok.Escaped = true
		tokens = append(tokens, tok)
	}

	for len(tagged) > 0 {
		lt := strings.IndexByte(tagged, '<')
		if lt < 0 {
			emit(tagged)
			break
		}
		emit(tagged[:lt])
		gt := strings.IndexByte(tagged[lt:], '>')
		if gt < 0 {
			emit(tagged[lt:])
			break
		}
		tag := tagged[lt+1 : lt+gt]
		tagged = tagged[lt+gt+1:]
		if name, ok := strings.CutPrefix(tag, "/"); ok {
			// close the innermost tag of that name
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == name {
					stack = stack[:i]
					break
				}
			}
			continue
		}
		stack = append(stack, tag)
	}
	return tokens
}

// advance moves a position over text.
func advance(p Position, text string) Position {
	for _, r := range text {
		if r == '\n' {
			p.Line++
			p.Col = 1
		} else {
			p.Col++
		}
	}
	return p
}

// Strip removes every tag from a tagged string and unescapes it, giving the
// source text back.
func Strip(tagged string) string {
	var b strings.Builder
	b.Grow(len(tagged))
	for _, tok := range ParseTagged(tagged) {
		b.WriteString(tok.Text)
	}
	return UnescapeString(b.String())
}

// runeLenAt returns the width of the rune at i, 1 at the end of s.
func runeLenAt(s string, i int) int {
	if i >= len(s) {
		return 1
	}
	_, n := utf8.DecodeRuneInString(s[i:])
	return n
}
