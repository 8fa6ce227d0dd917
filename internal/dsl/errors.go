package dsl

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a class of parse failure.
type Code string

const (
	CodeMissingMatch     Code = "P001"
	CodeMissingHops      Code = "P002"
	CodeMissingReturn    Code = "P003"
	CodeInvalidHops      Code = "P004"
	CodeUnexpectedToken  Code = "P005"
	CodeEmptyColumns     Code = "P006"
	CodeDuplicateColumn  Code = "P007"
	CodeInvalidLiteral   Code = "P008"
	CodeUnterminatedStr  Code = "P009"
	CodeInvalidCharacter Code = "P010"
)

// ParseError reports malformed query text.
type ParseError struct {
	Code   Code
	Reason string
	Offset int    // rune offset into Input
	Token  string // offending token text; empty at end of input
	Input  string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s: %s at offset %d", e.Code, e.Reason, e.Offset)
	}
	return fmt.Sprintf("%s: %s at offset %d near %q", e.Code, e.Reason, e.Offset, e.Token)
}

// Caret renders the input line containing the error with a caret under
// the offending position:
//
//	MATCH Person-[:KNOWS]->Person HOPS 0 RETURN src
//	                                   ^
func (e *ParseError) Caret() string {
	runes := []rune(e.Input)
	off := min(max(e.Offset, 0), len(runes))

	start := off
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end := off
	for end < len(runes) && runes[end] != '\n' {
		end++
	}

	var b strings.Builder
	b.WriteString(string(runes[start:end]))
	b.WriteByte('\n')
	for _, r := range runes[start:off] {
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// HasCode reports whether err is a *ParseError with the given code.
func HasCode(err error, code Code) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == code
}
