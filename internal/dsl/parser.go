package dsl

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/causalrt/internal/ir"
)

// Parse parses query text into an IR tree. Failures are *ParseError.
//
// Parse checks syntax only: column and predicate references are resolved
// against the pattern's schema later, by ir.Validate and the generators.
func Parse(text string) (ir.Node, error) {
	input := norm.NFC.String(text)
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, input: input}
	return p.parseQuery()
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant query text.
func MustParse(text string) ir.Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	tokens []Token
	pos    int
	input  string
}

func (p *parser) current() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}

func (p *parser) matchKeyword(kw string) bool {
	return p.current().keyword(kw)
}

// errorAt builds a ParseError pointing at tok.
func (p *parser) errorAt(tok Token, code Code, format string, args ...any) *ParseError {
	text := tok.Text
	if tok.Kind == TokString {
		text = "'" + text + "'"
	}
	return &ParseError{
		Code:   code,
		Reason: fmt.Sprintf(format, args...),
		Offset: tok.Offset,
		Token:  text,
		Input:  p.input,
	}
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokEOF:
		return "end of input"
	case TokString:
		return "string '" + tok.Text + "'"
	default:
		return fmt.Sprintf("%q", tok.Text)
	}
}

func (p *parser) expect(kind TokenKind, what string) (Token, error) {
	if !p.match(kind) {
		tok := p.current()
		return Token{}, p.errorAt(tok, CodeUnexpectedToken, "expected %s, got %s", what, describe(tok))
	}
	return p.advance(), nil
}

// expectIdent consumes a non-reserved identifier.
func (p *parser) expectIdent(what string) (string, error) {
	tok := p.current()
	if tok.Kind != TokIdent || isReserved(tok.Text) {
		return "", p.errorAt(tok, CodeUnexpectedToken, "expected %s, got %s", what, describe(tok))
	}
	p.advance()
	return tok.Text, nil
}

func (p *parser) parseQuery() (ir.Node, error) {
	if !p.matchKeyword("MATCH") {
		tok := p.current()
		return nil, p.errorAt(tok, CodeMissingMatch, "query must start with MATCH, got %s", describe(tok))
	}
	p.advance()

	var node ir.Node
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}

	var predicate ir.Expr
	if p.matchKeyword("WHERE") {
		p.advance()
		if predicate, err = p.parseOr(); err != nil {
			return nil, err
		}
	}

	if !p.matchKeyword("HOPS") {
		tok := p.current()
		return nil, p.errorAt(tok, CodeMissingHops, "missing HOPS clause, got %s", describe(tok))
	}
	p.advance()
	if pattern.MaxHops, err = p.parseHops(); err != nil {
		return nil, err
	}

	node = pattern
	if predicate != nil {
		node = ir.NewFilter(pattern, predicate)
	}

	if !p.matchKeyword("RETURN") {
		tok := p.current()
		return nil, p.errorAt(tok, CodeMissingReturn, "missing RETURN clause, got %s", describe(tok))
	}
	p.advance()

	cols, err := p.parseColumns()
	if err != nil {
		return nil, err
	}

	if !p.match(TokEOF) {
		tok := p.current()
		return nil, p.errorAt(tok, CodeUnexpectedToken, "expected end of input, got %s", describe(tok))
	}
	return ir.NewProject(node, cols...), nil
}

// parsePattern parses label-[:edge]->label. MaxHops is filled in later.
func (p *parser) parsePattern() (ir.MatchPattern, error) {
	var m ir.MatchPattern
	var err error
	if m.StartLabel, err = p.expectIdent("start label"); err != nil {
		return m, err
	}
	if _, err = p.expect(TokMinus, "'-'"); err != nil {
		return m, err
	}
	if _, err = p.expect(TokLBracket, "'['"); err != nil {
		return m, err
	}
	if _, err = p.expect(TokColon, "':'"); err != nil {
		return m, err
	}
	if m.EdgeType, err = p.expectIdent("edge type"); err != nil {
		return m, err
	}
	if _, err = p.expect(TokRBracket, "']'"); err != nil {
		return m, err
	}
	if _, err = p.expect(TokArrow, "'->'"); err != nil {
		return m, err
	}
	if m.EndLabel, err = p.expectIdent("end label"); err != nil {
		return m, err
	}
	return m, nil
}

func (p *parser) parseHops() (int, error) {
	tok := p.current()
	switch tok.Kind {
	case TokInt:
		p.advance()
		n, err := strconv.Atoi(tok.Text)
		if err != nil {
			return 0, p.errorAt(tok, CodeInvalidHops, "hop bound out of range")
		}
		if n < 1 {
			return 0, p.errorAt(tok, CodeInvalidHops, "hop bound must be a positive integer, got %d", n)
		}
		return n, nil
	case TokMinus:
		return 0, p.errorAt(tok, CodeInvalidHops, "hop bound must be a positive integer, got negative value")
	case TokFloat:
		return 0, p.errorAt(tok, CodeInvalidHops, "hop bound must be an integer, got %s", tok.Text)
	default:
		return 0, p.errorAt(tok, CodeInvalidHops, "expected hop bound, got %s", describe(tok))
	}
}

func (p *parser) parseColumns() ([]ir.Column, error) {
	if p.match(TokStar) {
		p.advance()
		return nil, nil
	}
	if p.match(TokEOF) {
		return nil, p.errorAt(p.current(), CodeEmptyColumns, "empty column list; use * for all columns")
	}

	var cols []ir.Column
	seen := make(map[string]bool)
	for {
		start := p.current()
		col, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		name := col.OutputName()
		if seen[name] {
			return nil, p.errorAt(start, CodeDuplicateColumn, "duplicate column %q", name)
		}
		seen[name] = true
		cols = append(cols, col)

		if !p.match(TokComma) {
			return cols, nil
		}
		p.advance()
	}
}

func (p *parser) parseColumn() (ir.Column, error) {
	ref, err := p.parseFieldRef("column")
	if err != nil {
		return ir.Column{}, err
	}
	col := ir.Column{Ref: ref}
	if p.matchKeyword("AS") {
		p.advance()
		if col.Alias, err = p.expectIdent("column alias"); err != nil {
			return ir.Column{}, err
		}
	}
	return col, nil
}

func (p *parser) parseFieldRef(what string) (ir.FieldRef, error) {
	v, err := p.expectIdent(what)
	if err != nil {
		return ir.FieldRef{}, err
	}
	ref := ir.FieldRef{Var: v}
	if p.match(TokDot) {
		p.advance()
		if ref.Prop, err = p.expectIdent("property name"); err != nil {
			return ir.FieldRef{}, err
		}
	}
	return ref, nil
}

func (p *parser) parseOr() (ir.Expr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []ir.Expr{first}
	for p.matchKeyword("OR") {
		p.advance()
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return ir.Or{Terms: terms}, nil
}

func (p *parser) parseAnd() (ir.Expr, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	terms := []ir.Expr{first}
	for p.matchKeyword("AND") {
		p.advance()
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return ir.And{Terms: terms}, nil
}

func (p *parser) parseNot() (ir.Expr, error) {
	if p.matchKeyword("NOT") {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ir.Not{Term: inner}, nil
	}
	if p.match(TokLParen) {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ir.Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	tok := p.current()
	if tok.Kind != TokOp {
		return nil, p.errorAt(tok, CodeUnexpectedToken, "expected comparison operator, got %s", describe(tok))
	}
	op, _ := ir.ParseOp(tok.Text)
	p.advance()
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return ir.Compare{Left: left, Op: op, Right: right}, nil
}

func (p *parser) parseOperand() (ir.Operand, error) {
	tok := p.current()
	switch {
	case tok.keyword("TRUE"):
		p.advance()
		return ir.Bool(true), nil
	case tok.keyword("FALSE"):
		p.advance()
		return ir.Bool(false), nil
	case tok.Kind == TokIdent:
		return p.parseFieldRef("operand")
	case tok.Kind == TokString:
		p.advance()
		return ir.Str(tok.Text), nil
	case tok.Kind == TokInt:
		p.advance()
		return p.intLiteral(tok, tok.Text)
	case tok.Kind == TokMinus:
		p.advance()
		num := p.current()
		switch num.Kind {
		case TokInt:
			p.advance()
			return p.intLiteral(tok, "-"+num.Text)
		case TokFloat:
			return nil, p.errorAt(num, CodeInvalidLiteral, "float literals are not supported: -%s", num.Text)
		default:
			return nil, p.errorAt(num, CodeInvalidLiteral, "expected integer after '-', got %s", describe(num))
		}
	case tok.Kind == TokFloat:
		return nil, p.errorAt(tok, CodeInvalidLiteral, "float literals are not supported: %s", tok.Text)
	default:
		return nil, p.errorAt(tok, CodeUnexpectedToken, "expected field or literal, got %s", describe(tok))
	}
}

func (p *parser) intLiteral(at Token, text string) (ir.Operand, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorAt(at, CodeInvalidLiteral, "integer out of range: %s", text)
	}
	return ir.Int(n), nil
}
