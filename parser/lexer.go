package parser

import (
	"fmt"

	"github.com/sid-xyz/go-sid/diagram"
)

type tokenKind uint8

const (
	tokOp tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind   tokenKind
	value  string
	pos    int
	line   int
	column int
}

// ParseError reports a syntax or arity violation with source position.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func parseErrf(line, column int, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}

func isIdentStart(c byte) bool {
	return c == '$' || c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isIdentPart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// tokenize scans text into tokens with line/column tracking. Operator
// names are recognized by maximal munch: a word is an operator token
// only when the whole word is an operator, so identifiers like
// "Purpose" are not split at their first letter.
func tokenize(text string) ([]token, error) {
	var tokens []token
	line, column := 1, 1
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\n':
			line++
			column = 1
			i++
		case c == ' ' || c == '\t' || c == '\r':
			column++
			i++
		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i, line, column})
			column++
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i, line, column})
			column++
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ",", i, line, column})
			column++
			i++
		case c == 'S' && i+1 < len(text) && (text[i+1] == '+' || text[i+1] == '-'):
			tokens = append(tokens, token{tokOp, text[i : i+2], i, line, column})
			column += 2
			i += 2
		case isIdentStart(c):
			start := i
			i++
			for i < len(text) && isIdentPart(text[i]) {
				i++
			}
			word := text[start:i]
			kind := tokIdent
			if diagram.ValidOpName(word) {
				kind = tokOp
			}
			tokens = append(tokens, token{kind, word, start, line, column})
			column += i - start
		default:
			return nil, parseErrf(line, column, "unexpected character %q", string(c))
		}
	}
	return tokens, nil
}
