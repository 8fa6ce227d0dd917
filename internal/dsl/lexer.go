package dsl

import (
	"strings"
)

// TokenKind is the type of token.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokInt
	TokFloat
	TokString
	TokMinus
	TokArrow
	TokLBracket
	TokRBracket
	TokColon
	TokComma
	TokDot
	TokStar
	TokLParen
	TokRParen
	TokOp
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokInt:
		return "Int"
	case TokFloat:
		return "Float"
	case TokString:
		return "String"
	case TokMinus:
		return "Minus"
	case TokArrow:
		return "Arrow"
	case TokLBracket:
		return "LBracket"
	case TokRBracket:
		return "RBracket"
	case TokColon:
		return "Colon"
	case TokComma:
		return "Comma"
	case TokDot:
		return "Dot"
	case TokStar:
		return "Star"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokOp:
		return "Op"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// Token is a lexical token. Text is the raw source text except for
// strings, where it is the unquoted value.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

// keyword reports whether t is the given keyword, case-insensitively.
func (t Token) keyword(kw string) bool {
	return t.Kind == TokIdent && strings.EqualFold(t.Text, kw)
}

// reserved words cannot be used as identifiers. HOPS is a keyword but
// not reserved: it only appears after the pattern or predicate, so "hops"
// stays usable as the hop-count field.
var reserved = []string{"MATCH", "WHERE", "RETURN", "AS", "AND", "OR", "NOT", "TRUE", "FALSE"}

func isReserved(s string) bool {
	for _, kw := range reserved {
		if strings.EqualFold(s, kw) {
			return true
		}
	}
	return false
}

var singleCharTokens = map[rune]TokenKind{
	'[': TokLBracket, ']': TokRBracket, ':': TokColon, ',': TokComma,
	'.': TokDot, '*': TokStar, '(': TokLParen, ')': TokRParen, '=': TokOp,
}

// lexer tokenizes a query string.
type lexer struct {
	input []rune
	src   string
	pos   int
}

// Lex tokenizes the entire input. The returned slice always ends in TokEOF.
func Lex(input string) ([]Token, error) {
	l := &lexer{input: []rune(input), src: input}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Offset: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	if kind, ok := singleCharTokens[ch]; ok {
		l.pos++
		return Token{Kind: kind, Text: string(ch), Offset: start}, nil
	}

	switch ch {
	case '-':
		if l.peek(1) == '>' {
			l.pos += 2
			return Token{Kind: TokArrow, Text: "->", Offset: start}, nil
		}
		l.pos++
		return Token{Kind: TokMinus, Text: "-", Offset: start}, nil
	case '<':
		if p := l.peek(1); p == '=' || p == '>' {
			l.pos += 2
			return Token{Kind: TokOp, Text: string(l.input[start:l.pos]), Offset: start}, nil
		}
		l.pos++
		return Token{Kind: TokOp, Text: "<", Offset: start}, nil
	case '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokOp, Text: ">=", Offset: start}, nil
		}
		l.pos++
		return Token{Kind: TokOp, Text: ">", Offset: start}, nil
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokOp, Text: "!=", Offset: start}, nil
		}
	case '\'':
		return l.scanString()
	}

	if isDigit(ch) {
		return l.scanNumber(), nil
	}
	if isIdentStart(ch) {
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return Token{Kind: TokIdent, Text: string(l.input[start:l.pos]), Offset: start}, nil
	}

	return Token{}, &ParseError{
		Code:   CodeInvalidCharacter,
		Reason: "invalid character",
		Offset: start,
		Token:  string(ch),
		Input:  l.src,
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

// scanString scans a single-quoted string; a doubled quote is a literal quote.
func (l *lexer) scanString() (Token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\'' {
			if l.peek(1) == '\'' {
				sb.WriteRune('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: TokString, Text: sb.String(), Offset: start}, nil
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, &ParseError{
		Code:   CodeUnterminatedStr,
		Reason: "unterminated string",
		Offset: start,
		Token:  string(l.input[start:]),
		Input:  l.src,
	}
}

// scanNumber scans digits, plus a fractional part if one follows. Floats
// are tokenized so the parser can reject them with a precise error.
func (l *lexer) scanNumber() Token {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	kind := TokInt
	if l.pos < len(l.input) && l.input[l.pos] == '.' && isDigit(l.peek(1)) {
		kind = TokFloat
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') &&
		(isDigit(l.peek(1)) || ((l.peek(1) == '+' || l.peek(1) == '-') && isDigit(l.peek(2)))) {
		kind = TokFloat
		l.pos += 2
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: kind, Text: string(l.input[start:l.pos]), Offset: start}
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
