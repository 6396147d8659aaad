package cypher

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingMatch and ErrMissingReturn identify structural errors with errors.Is.
var (
	ErrMissingMatch  = errors.New("Missing MATCH clause")
	ErrMissingReturn = errors.New("Missing RETURN clause")
)

// SyntaxError is a malformed-query diagnostic with its position.
type SyntaxError struct {
	Offset int // byte offset into the query
	Line   int // 1-based
	Column int // 1-based, in bytes
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: line %d:%d %s", e.Line, e.Column, e.Msg)
}

// Excerpt renders the offending query line with a caret under the error column.
func (e *SyntaxError) Excerpt(query string) string {
	lines := strings.Split(query, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}
	line := lines[e.Line-1]
	return line + "\n" + strings.Repeat(" ", e.Column-1) + "^"
}

// StructuralError reports a query that tokenizes and parses but lacks a
// mandatory clause.
type StructuralError struct {
	Offset int // where the clause was expected
	Err    error
}

func (e *StructuralError) Error() string {
	return e.Err.Error()
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err came from tokenizing or parsing a query.
func IsParseError(err error) bool {
	var se *SyntaxError
	var st *StructuralError
	return errors.As(err, &se) || errors.As(err, &st)
}

// Describe renders err for display, adding a caret excerpt for syntax errors.
func Describe(err error, query string) string {
	var se *SyntaxError
	if errors.As(err, &se) {
		if ex := se.Excerpt(query); ex != "" {
			return err.Error() + "\n" + ex
		}
	}
	return err.Error()
}

// newSyntaxError builds a SyntaxError, resolving offset into line and column.
func newSyntaxError(input string, offset int, format string, args ...any) *SyntaxError {
	line, col := lineCol(input, offset)
	return &SyntaxError{
		Offset: offset,
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func lineCol(input string, offset int) (int, int) {
	if offset > len(input) {
		offset = len(input)
	}
	line := 1 + strings.Count(input[:offset], "\n")
	lineStart := strings.LastIndexByte(input[:offset], '\n') + 1
	return line, offset - lineStart + 1
}
