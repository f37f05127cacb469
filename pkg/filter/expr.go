package filter

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("filter syntax error")

// SyntaxError reports where a filter expression failed to parse.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter syntax error at %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// A cases.Caser may keep state between calls, so each goroutine borrows its own.
var folders = sync.Pool{New: func() any { return cases.Fold() }}

func fold(s string) string {
	c := folders.Get().(cases.Caser)
	defer folders.Put(c)
	return c.String(s)
}

type node interface {
	match(folded string) bool
	String() string
}

type termNode struct {
	raw    string
	folded string
}

func (n termNode) match(s string) bool { return strings.Contains(s, n.folded) }
func (n termNode) String() string     { return Quote(n.raw) }

type notNode struct{ x node }

func (n notNode) match(s string) bool { return !n.x.match(s) }
func (n notNode) String() string     { return "NOT " + n.x.String() }

type andNode struct{ l, r node }

func (n andNode) match(s string) bool { return n.l.match(s) && n.r.match(s) }
func (n andNode) String() string     { return "(" + n.l.String() + " AND " + n.r.String() + ")" }

type orNode struct{ l, r node }

func (n orNode) match(s string) bool { return n.l.match(s) || n.r.match(s) }
func (n orNode) String() string     { return "(" + n.l.String() + " OR " + n.r.String() + ")" }

// Query is a compiled text filter. Terms match as case-insensitive
// substrings of an item's searchable string.
type Query struct {
	text  string
	root  node
	terms []string
}

// Text returns the source expression.
func (q *Query) Text() string {
	if q == nil {
		return ""
	}
	return q.text
}

// Match evaluates the query against s. A nil query matches everything.
func (q *Query) Match(s string) bool {
	if q == nil {
		return true
	}
	return q.root.match(fold(s))
}

// Terms returns the non-negated terms, for highlighting.
func (q *Query) Terms() []string {
	if q == nil {
		return nil
	}
	return q.terms
}

func (q *Query) String() string {
	if q == nil {
		return ""
	}
	return q.root.String()
}

// Quote turns s into a single term matching s literally.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

type tokKind int

const (
	tokTerm tokKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func isDelim(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')'
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '&' && i+1 < len(rs) && rs[i+1] == '&':
			toks = append(toks, token{tokAnd, "&&", i})
			i += 2
		case r == '|' && i+1 < len(rs) && rs[i+1] == '|':
			toks = append(toks, token{tokOr, "||", i})
			i += 2
		case r == '!' || (r == '-' && i+1 < len(rs) && !isDelim(rs[i+1])):
			toks = append(toks, token{tokNot, string(r), i})
			i++
		case r == '"':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				c := rs[i]
				if c == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(c)
				i++
			}
			if !closed {
				return nil, &SyntaxError{Pos: start, Msg: "unterminated quote"}
			}
			toks = append(toks, token{tokTerm, b.String(), start})
		default:
			start := i
			for i < len(rs) && !isDelim(rs[i]) {
				i++
			}
			word := string(rs[start:i])
			switch word {
			case "AND":
				toks = append(toks, token{tokAnd, word, start})
			case "OR":
				toks = append(toks, token{tokOr, word, start})
			case "NOT":
				toks = append(toks, token{tokNot, word, start})
			default:
				toks = append(toks, token{tokTerm, word, start})
			}
		}
	}
	return append(toks, token{tokEOF, "", len(rs)}), nil
}

type parser struct {
	toks  []token
	pos   int
	terms []string
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (node, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = orNode{l, r}
	}
	return l, nil
}

func (p *parser) parseAnd() (node, error) {
	l, err := p.parseUnary(false)
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokAnd:
			p.next()
		case tokTerm, tokNot, tokLParen:
			// juxtaposition is an implicit AND
		default:
			return l, nil
		}
		r, err := p.parseUnary(false)
		if err != nil {
			return nil, err
		}
		l = andNode{l, r}
	}
}

func (p *parser) parseUnary(negated bool) (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseUnary(!negated)
		if err != nil {
			return nil, err
		}
		return notNode{x}, nil
	}
	return p.parsePrimary(negated)
}

func (p *parser) parsePrimary(negated bool) (node, error) {
	t := p.next()
	switch t.kind {
	case tokTerm:
		if !negated {
			p.terms = append(p.terms, t.text)
		}
		return termNode{raw: t.text, folded: fold(t.text)}, nil
	case tokLParen:
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, &SyntaxError{Pos: c.pos, Msg: "expected )"}
		}
		return x, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}

// Parse compiles a filter expression. Blank input yields a nil query, which
// means no text filter.
func Parse(text string) (*Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return &Query{text: text, root: root, terms: p.terms}, nil
}
