package cypher

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType classifies a lexer token.
type TokenType int

const (
	// Keywords
	TokMatch    TokenType = iota // MATCH
	TokWhere                     // WHERE
	TokReturn                    // RETURN
	TokAnd                       // AND
	TokOr                        // OR
	TokAs                        // AS
	TokContains                  // CONTAINS

	// Symbols
	TokLParen   // (
	TokRParen   // )
	TokLBracket // [
	TokRBracket // ]
	TokDash     // -
	TokGT       // >
	TokLT       // <
	TokColon    // :
	TokDot      // .
	TokStar     // *
	TokComma    // ,
	TokEQ       // =
	TokNEQ      // <>
	TokGTE      // >=
	TokLTE      // <=
	TokDotDot   // ..

	// Literals
	TokIdent  // identifier
	TokString // "..." or '...'
	TokNumber // integer

	TokEOF // end of input
)

var tokenNames = map[TokenType]string{
	TokMatch: "MATCH", TokWhere: "WHERE", TokReturn: "RETURN", TokAnd: "AND",
	TokOr: "OR", TokAs: "AS", TokContains: "CONTAINS",
	TokLParen: "'('", TokRParen: "')'", TokLBracket: "'['", TokRBracket: "']'",
	TokDash: "'-'", TokGT: "'>'", TokLT: "'<'", TokColon: "':'", TokDot: "'.'",
	TokStar: "'*'", TokComma: "','", TokEQ: "'='", TokNEQ: "'<>'", TokGTE: "'>='",
	TokLTE: "'<='", TokDotDot: "'..'",
	TokIdent: "identifier", TokString: "string", TokNumber: "number", TokEOF: "end of input",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a single lexer token.
type Token struct {
	Type  TokenType
	Value string // source text; keywords keep their original case
	Pos   int    // byte offset in the input
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, pos=%d)", t.Type, t.Value, t.Pos)
}

// keywords maps uppercase keyword strings to their token type.
var keywords = map[string]TokenType{
	"MATCH":    TokMatch,
	"WHERE":    TokWhere,
	"RETURN":   TokReturn,
	"AND":      TokAnd,
	"OR":       TokOr,
	"AS":       TokAs,
	"CONTAINS": TokContains,
}

// singleCharTokens maps single-character symbols to their token type.
var singleCharTokens = map[byte]TokenType{
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	'*': TokStar,
	',': TokComma,
	':': TokColon,
	'-': TokDash,
	'=': TokEQ,
}

// Lexer tokenizes a query string.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// Lex tokenizes the input string into a slice of tokens. Errors are
// *SyntaxError values.
func Lex(input string) ([]Token, error) {
	l := &Lexer{input: input}
	if err := l.tokenize(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *Lexer) tokenize() error {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]

		if l.skipWhitespaceAndComments(ch) {
			continue
		}

		if err := l.lexNextToken(ch); err != nil {
			return err
		}
	}

	l.tokens = append(l.tokens, Token{Type: TokEOF, Value: "", Pos: l.pos})
	return nil
}

// skipWhitespaceAndComments skips whitespace and // or /* */ comments.
// Returns true if something was skipped.
func (l *Lexer) skipWhitespaceAndComments(ch byte) bool {
	if unicode.IsSpace(rune(ch)) {
		l.pos++
		return true
	}
	if ch == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/' {
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
		return true
	}
	if ch == '/' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '*' {
		l.pos += 2
		for l.pos < len(l.input) {
			if l.input[l.pos] == '*' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '/' {
				l.pos += 2
				return true
			}
			l.pos++
		}
		return true
	}
	return false
}

// lexNextToken dispatches a single token starting at l.pos.
func (l *Lexer) lexNextToken(ch byte) error {
	if tok, ok := singleCharTokens[ch]; ok {
		l.emit(tok, string(ch))
		l.pos++
		return nil
	}

	switch {
	case ch == '.':
		l.lexDot()
	case ch == '>':
		l.lexTwoChar('=', TokGTE, TokGT, ">")
	case ch == '<':
		l.lexLess()
	case ch == '"' || ch == '\'':
		return l.lexString(ch)
	case isDigit(ch):
		l.lexNumber()
	case isIdentStart(ch):
		l.lexIdent()
	case ch == '`':
		return l.lexQuotedIdent()
	default:
		return newSyntaxError(l.input, l.pos, "unexpected character %q", string(ch))
	}
	return nil
}

// lexDot handles '.' and '..' tokens.
func (l *Lexer) lexDot() {
	if l.pos+1 < len(l.input) && l.input[l.pos+1] == '.' {
		l.emit(TokDotDot, "..")
		l.pos += 2
	} else {
		l.emit(TokDot, ".")
		l.pos++
	}
}

// lexTwoChar emits compoundTok if the next char is second, otherwise singleTok.
func (l *Lexer) lexTwoChar(second byte, compoundTok, singleTok TokenType, singleVal string) {
	if l.pos+1 < len(l.input) && l.input[l.pos+1] == second {
		l.emit(compoundTok, singleVal+string(second))
		l.pos += 2
	} else {
		l.emit(singleTok, singleVal)
		l.pos++
	}
}

// lexLess handles '<', '<=' and '<>'. A '<' followed by '-' stays a lone
// arrowhead.
func (l *Lexer) lexLess() {
	if l.pos+1 < len(l.input) && l.input[l.pos+1] == '>' {
		l.emit(TokNEQ, "<>")
		l.pos += 2
		return
	}
	l.lexTwoChar('=', TokLTE, TokLT, "<")
}

func (l *Lexer) emit(typ TokenType, val string) {
	l.tokens = append(l.tokens, Token{Type: typ, Value: val, Pos: l.pos})
}

func (l *Lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++ // skip opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			sb.WriteByte(l.input[l.pos])
			l.pos++
			continue
		}
		if ch == quote {
			l.tokens = append(l.tokens, Token{Type: TokString, Value: sb.String(), Pos: start})
			l.pos++ // skip closing quote
			return nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return newSyntaxError(l.input, start, "unterminated string literal")
}

func (l *Lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	l.tokens = append(l.tokens, Token{Type: TokNumber, Value: l.input[start:l.pos], Pos: start})
}

func (l *Lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]
	if tok, ok := keywords[strings.ToUpper(word)]; ok {
		l.tokens = append(l.tokens, Token{Type: tok, Value: word, Pos: start})
	} else {
		l.tokens = append(l.tokens, Token{Type: TokIdent, Value: word, Pos: start})
	}
}

// lexQuotedIdent handles `escaped identifiers`, which never become keywords.
func (l *Lexer) lexQuotedIdent() error {
	start := l.pos
	end := strings.IndexByte(l.input[start+1:], '`')
	if end < 0 {
		return newSyntaxError(l.input, start, "unterminated quoted identifier")
	}
	if end == 0 {
		return newSyntaxError(l.input, start, "empty quoted identifier")
	}
	l.tokens = append(l.tokens, Token{Type: TokIdent, Value: l.input[start+1 : start+1+end], Pos: start})
	l.pos = start + end + 2
	return nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
