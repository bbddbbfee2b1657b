package rdf

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// MarshalNQuads renders g as N-Quads,
// one statement per line,
// in Quad.Less order with duplicates removed.
func MarshalNQuads(g Graph) []byte {
	var b strings.Builder
	for _, q := range g.Normalize() {
		writeQuad(&b, q)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func writeQuad(b *strings.Builder, q Quad) {
	writeTerm(b, q.Subject)
	b.WriteByte(' ')
	writeTerm(b, q.Predicate)
	b.WriteByte(' ')
	writeTerm(b, q.Object)
	if !q.Graph.IsZero() {
		b.WriteByte(' ')
		writeTerm(b, q.Graph)
	}
	b.WriteString(" .")
}

func writeTerm(b *strings.Builder, t Term) {
	switch t.Kind {
	case KindIRI:
		writeIRI(b, t.Value)

	case KindBlank:
		b.WriteString("_:")
		b.WriteString(t.Value)

	case KindLiteral:
		b.WriteByte('"')
		escapeLiteral(b, t.Value)
		b.WriteByte('"')
		switch {
		case t.Language != "":
			b.WriteByte('@')
			b.WriteString(t.Language)
		case t.Datatype != "" && t.Datatype != XSDString:
			b.WriteString("^^")
			writeIRI(b, t.Datatype)
		}
	}
}

// Writes <iri>, escaping as \u00XX the characters an IRIREF may not contain.
func writeIRI(b *strings.Builder, iri string) {
	b.WriteByte('<')
	for i := 0; i < len(iri); i++ {
		c := iri[i]
		if c <= ' ' || strings.IndexByte("<>\"{}|^`\\", c) >= 0 {
			fmt.Fprintf(b, `\u%04X`, c)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteByte('>')
}

func escapeLiteral(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
}

// ParseError describes malformed N-Quads input.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseNQuads parses N-Quads input.
// Blank lines and comment lines are skipped.
// The result is not normalized.
func ParseNQuads(inp []byte) (Graph, error) {
	var (
		g  Graph
		sc = bufio.NewScanner(bytes.NewReader(inp))
		n  int
	)
	sc.Buffer(make([]byte, 0, 64*1024), len(inp)+1)
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := parseStatement(line)
		if err != nil {
			return nil, &ParseError{Line: n, Msg: err.Error()}
		}
		g = append(g, q)
	}
	return g, errors.Wrap(sc.Err(), "scanning input")
}

type lexer struct {
	s   string
	pos int
}

func parseStatement(line string) (Quad, error) {
	lx := &lexer{s: line}

	var q Quad

	subj, err := lx.term()
	if err != nil {
		return q, errors.Wrap(err, "subject")
	}
	if subj.IsLiteral() {
		return q, errors.New("literal subject")
	}
	pred, err := lx.term()
	if err != nil {
		return q, errors.Wrap(err, "predicate")
	}
	if !pred.IsIRI() {
		return q, errors.New("predicate is not an IRI")
	}
	obj, err := lx.term()
	if err != nil {
		return q, errors.Wrap(err, "object")
	}
	q = Quad{Subject: subj, Predicate: pred, Object: obj}

	lx.skipSpace()
	if !lx.done() && lx.peek() != '.' {
		label, err := lx.term()
		if err != nil {
			return q, errors.Wrap(err, "graph label")
		}
		if label.IsLiteral() {
			return q, errors.New("literal graph label")
		}
		q.Graph = label
	}

	lx.skipSpace()
	if lx.done() || lx.peek() != '.' {
		return q, errors.New("missing final '.'")
	}
	lx.pos++
	lx.skipSpace()
	if !lx.done() && lx.peek() != '#' {
		return q, fmt.Errorf("unexpected text after '.': %q", lx.s[lx.pos:])
	}
	return q, nil
}

func (lx *lexer) done() bool { return lx.pos >= len(lx.s) }
func (lx *lexer) peek() byte { return lx.s[lx.pos] }

func (lx *lexer) skipSpace() {
	for !lx.done() && (lx.peek() == ' ' || lx.peek() == '\t') {
		lx.pos++
	}
}

func (lx *lexer) term() (Term, error) {
	lx.skipSpace()
	if lx.done() {
		return Term{}, errors.New("unexpected end of statement")
	}
	switch lx.peek() {
	case '<':
		iri, err := lx.iri()
		return IRI(iri), err

	case '_':
		if !strings.HasPrefix(lx.s[lx.pos:], "_:") {
			return Term{}, errors.New("malformed blank node")
		}
		lx.pos += 2
		start := lx.pos
		for !lx.done() && !isTermEnd(lx.peek()) {
			lx.pos++
		}
		// A blank node label may not end with '.', so a '.' there terminates the statement.
		for lx.pos > start && lx.s[lx.pos-1] == '.' {
			lx.pos--
		}
		if lx.pos == start {
			return Term{}, errors.New("empty blank node label")
		}
		return Blank(lx.s[start:lx.pos]), nil

	case '"':
		return lx.literal()
	}
	return Term{}, fmt.Errorf("unexpected character %q", lx.peek())
}

func isTermEnd(c byte) bool {
	return c == ' ' || c == '\t' || c == '<' || c == '"'
}

func (lx *lexer) iri() (string, error) {
	lx.pos++ // '<'
	var b strings.Builder
	for {
		if lx.done() {
			return "", errors.New("unterminated IRI")
		}
		c := lx.peek()
		switch c {
		case '>':
			lx.pos++
			return b.String(), nil
		case '\\':
			r, err := lx.uchar()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		default:
			b.WriteByte(c)
			lx.pos++
		}
	}
}

func (lx *lexer) literal() (Term, error) {
	lx.pos++ // '"'
	var b strings.Builder
	for {
		if lx.done() {
			return Term{}, errors.New("unterminated literal")
		}
		c := lx.peek()
		if c == '"' {
			lx.pos++
			break
		}
		if c != '\\' {
			b.WriteByte(c)
			lx.pos++
			continue
		}
		if lx.pos+1 >= len(lx.s) {
			return Term{}, errors.New("dangling escape")
		}
		switch lx.s[lx.pos+1] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case '\\':
			b.WriteByte('\\')
		case 'u', 'U':
			r, err := lx.uchar()
			if err != nil {
				return Term{}, err
			}
			b.WriteRune(r)
			continue
		default:
			return Term{}, fmt.Errorf("unknown escape \\%c", lx.s[lx.pos+1])
		}
		lx.pos += 2
	}

	value := b.String()
	if !utf8.ValidString(value) {
		return Term{}, errors.New("literal is not valid UTF-8")
	}

	if lx.done() {
		return Literal(value, ""), nil
	}
	switch lx.peek() {
	case '@':
		lx.pos++
		start := lx.pos
		for !lx.done() && isLangChar(lx.peek()) {
			lx.pos++
		}
		if lx.pos == start {
			return Term{}, errors.New("empty language tag")
		}
		return LangLiteral(value, lx.s[start:lx.pos]), nil

	case '^':
		if !strings.HasPrefix(lx.s[lx.pos:], "^^<") {
			return Term{}, errors.New("malformed datatype")
		}
		lx.pos += 2
		dt, err := lx.iri()
		if err != nil {
			return Term{}, errors.Wrap(err, "datatype")
		}
		return Literal(value, dt), nil
	}
	return Literal(value, ""), nil
}

func isLangChar(c byte) bool {
	return c == '-' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// Parses \uXXXX or \UXXXXXXXX at lx.pos.
func (lx *lexer) uchar() (rune, error) {
	if lx.pos+1 >= len(lx.s) {
		return 0, errors.New("dangling escape")
	}
	var n int
	switch lx.s[lx.pos+1] {
	case 'u':
		n = 4
	case 'U':
		n = 8
	default:
		return 0, fmt.Errorf("unknown escape \\%c", lx.s[lx.pos+1])
	}
	start := lx.pos + 2
	if start+n > len(lx.s) {
		return 0, errors.New("short unicode escape")
	}
	v, err := strconv.ParseUint(lx.s[start:start+n], 16, 32)
	if err != nil {
		return 0, errors.Wrap(err, "parsing unicode escape")
	}
	lx.pos = start + n
	return rune(v), nil
}
