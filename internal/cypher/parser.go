package cypher

import (
	"strconv"
)

// Parser converts a token stream into an AST.
type Parser struct {
	input  string
	tokens []Token
	pos    int
}

// Parse tokenizes and parses a query string into an AST. The returned error
// is a *SyntaxError or a *StructuralError.
func Parse(input string) (*Query, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{input: input, tokens: tokens}
	return p.parseQuery()
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(typ TokenType, context string) (Token, error) {
	t := p.advance()
	if t.Type != typ {
		return t, p.errorAt(t, "expected %s %s, got %s", typ, context, describe(t))
	}
	return t, nil
}

func (p *Parser) errorAt(t Token, format string, args ...any) *SyntaxError {
	return newSyntaxError(p.input, t.Pos, format, args...)
}

// describe renders a token for diagnostics.
func describe(t Token) string {
	if t.Type == TokEOF {
		return "end of input"
	}
	return strconv.Quote(t.Value)
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}

	// MATCH clause (required)
	switch t := p.peek(); t.Type {
	case TokMatch:
	case TokReturn, TokWhere, TokEOF:
		return nil, &StructuralError{Offset: t.Pos, Err: ErrMissingMatch}
	default:
		return nil, p.errorAt(t, "expected MATCH, got %s", describe(t))
	}
	m, err := p.parseMatch()
	if err != nil {
		return nil, err
	}
	q.Match = m

	// WHERE clause (optional)
	if p.peek().Type == TokWhere {
		w, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		q.Where = w
	}

	// RETURN clause (required)
	switch t := p.peek(); t.Type {
	case TokReturn:
	case TokEOF:
		return nil, &StructuralError{Offset: t.Pos, Err: ErrMissingReturn}
	default:
		if q.Where == nil {
			return nil, p.errorAt(t, "expected ',', WHERE or RETURN, got %s", describe(t))
		}
		return nil, p.errorAt(t, "expected AND, OR or RETURN, got %s", describe(t))
	}
	r, err := p.parseReturn()
	if err != nil {
		return nil, err
	}
	q.Return = r

	if t := p.peek(); t.Type != TokEOF {
		return nil, p.errorAt(t, "unexpected %s after RETURN items", describe(t))
	}
	return q, nil
}

func (p *Parser) parseMatch() (*MatchClause, error) {
	p.advance() // consume MATCH
	m := &MatchClause{}
	for {
		part, err := p.parsePatternPart()
		if err != nil {
			return nil, err
		}
		m.Patterns = append(m.Patterns, part)
		if p.peek().Type != TokComma {
			return m, nil
		}
		p.advance() // consume ,
	}
}

func (p *Parser) parsePatternPart() (*PatternPart, error) {
	part := &PatternPart{}

	// First element must be a node
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	part.Elements = append(part.Elements, node)

	for p.isRelStart() {
		step, err := p.parseRelStep()
		if err != nil {
			return nil, err
		}
		part.Elements = append(part.Elements, step)
	}
	return part, nil
}

// isRelStart reports whether the next token begins -[...]->, <-[...]- or -[...]-.
func (p *Parser) isRelStart() bool {
	t := p.peek()
	return t.Type == TokDash || t.Type == TokLT
}

func (p *Parser) parseRelStep() (*RelStep, error) {
	rel := &RelPattern{}

	leadingArrow := false
	if p.peek().Type == TokLT {
		leadingArrow = true
		p.advance() // consume <
	}

	if _, err := p.expect(TokDash, "in relationship"); err != nil {
		return nil, err
	}

	// Optional bracket section [...]
	if p.peek().Type == TokLBracket {
		if err := p.parseRelBracket(rel); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokDash, "after relationship"); err != nil {
		return nil, err
	}

	trailingArrow := false
	if p.peek().Type == TokGT {
		gt := p.advance() // consume >
		if leadingArrow {
			return nil, p.errorAt(gt, "relationship cannot point both ways; use -[...]- for either direction")
		}
		trailingArrow = true
	}

	switch {
	case leadingArrow && !trailingArrow:
		rel.Direction = DirIncoming
	case trailingArrow && !leadingArrow:
		rel.Direction = DirOutgoing
	default:
		rel.Direction = DirEither
	}

	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	return &RelStep{Rel: rel, Node: node}, nil
}

func (p *Parser) parseRelBracket(rel *RelPattern) error {
	p.advance() // consume [

	if p.peek().Type == TokIdent {
		rel.Variable = p.advance().Value
	}

	// Optional :TYPE
	if p.peek().Type == TokColon {
		p.advance() // consume :
		t, err := p.expect(TokIdent, "relationship type after ':'")
		if err != nil {
			return err
		}
		rel.Type = t.Value
	}

	// Optional *[min][..[max]]
	if p.peek().Type == TokStar {
		p.advance() // consume *
		r, err := p.parseHopRange()
		if err != nil {
			return err
		}
		rel.Range = r
	}

	_, err := p.expect(TokRBracket, "to close relationship")
	return err
}

// parseHopRange parses what follows '*':
//
//	(empty)  min=1, unbounded
//	N        exactly N
//	N..      at least N
//	..M      1 to M
//	N..M     N to M
func (p *Parser) parseHopRange() (*HopRange, error) {
	r := &HopRange{}

	if p.peek().Type == TokNumber {
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		r.Min = &n
		if p.peek().Type != TokDotDot {
			exact := n
			r.Max = &exact
			return r, nil
		}
	}

	if p.peek().Type == TokDotDot {
		p.advance() // consume ..
		if p.peek().Type == TokNumber {
			m, err := p.parseCount()
			if err != nil {
				return nil, err
			}
			r.Max = &m
		}
	}
	return r, nil
}

func (p *Parser) parseCount() (int, error) {
	t := p.advance()
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return 0, p.errorAt(t, "invalid hop count %q", t.Value)
	}
	return n, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(TokLParen, "to open node pattern"); err != nil {
		return nil, err
	}

	node := &NodePattern{}

	if p.peek().Type == TokIdent {
		node.Variable = p.advance().Value
	}

	// Optional :Label[:Label...]
	for p.peek().Type == TokColon {
		p.advance() // consume :
		t, err := p.expectName("label after ':'")
		if err != nil {
			return nil, err
		}
		node.Labels = append(node.Labels, t.Value)
	}

	if _, err := p.expect(TokRParen, "to close node pattern"); err != nil {
		return nil, err
	}
	return node, nil
}

// expectName accepts an identifier or a keyword used as a name, as in
// `n.contains` or `(n:Match)`.
func (p *Parser) expectName(context string) (Token, error) {
	t := p.advance()
	if t.Type == TokIdent || t.Type < TokLParen {
		return t, nil
	}
	return t, p.errorAt(t, "expected %s, got %s", context, describe(t))
}

func (p *Parser) parseWhere() (*WhereClause, error) {
	p.advance() // consume WHERE
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return &WhereClause{Expr: expr}, nil
}

// parseOr parses and_expr (OR and_expr)*. A single operand is returned
// unwrapped.
func (p *Parser) parseOr() (Expression, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expression{first}
	for p.peek().Type == TokOr {
		p.advance() // consume OR
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &OrExpr{Operands: operands}, nil
}

// parseAnd parses comparison (AND comparison)*.
func (p *Parser) parseAnd() (Expression, error) {
	first, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	operands := []Expression{first}
	for p.peek().Type == TokAnd {
		p.advance() // consume AND
		next, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return first, nil
	}
	return &AndExpr{Operands: operands}, nil
}

var compOps = map[TokenType]CompOp{
	TokEQ:       OpEq,
	TokNEQ:      OpNeq,
	TokLT:       OpLt,
	TokGT:       OpGt,
	TokLTE:      OpLte,
	TokGTE:      OpGte,
	TokContains: OpContains,
}

func (p *Parser) parseComparison() (*Comparison, error) {
	left, err := p.parsePropertyRef()
	if err != nil {
		return nil, err
	}
	c := &Comparison{Left: left}

	op, ok := compOps[p.peek().Type]
	if !ok {
		return c, nil
	}
	p.advance()
	c.Op = op

	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	c.Right = right
	return c, nil
}

func (p *Parser) parsePropertyRef() (*PropertyRef, error) {
	varTok, err := p.expect(TokIdent, "variable")
	if err != nil {
		return nil, err
	}
	ref := &PropertyRef{Variable: varTok.Value}
	if p.peek().Type == TokDot {
		p.advance() // consume .
		propTok, err := p.expectName("property name after '.'")
		if err != nil {
			return nil, err
		}
		ref.Property = propTok.Value
	}
	return ref, nil
}

func (p *Parser) parseTerm() (Term, error) {
	t := p.peek()
	switch t.Type {
	case TokString:
		p.advance()
		return &StringLiteral{Value: t.Value}, nil
	case TokNumber:
		p.advance()
		return p.numberLiteral(t, "")
	case TokDash:
		p.advance()
		num, err := p.expect(TokNumber, "after '-'")
		if err != nil {
			return nil, err
		}
		return p.numberLiteral(num, "-")
	case TokIdent:
		return p.parsePropertyRef()
	default:
		return nil, p.errorAt(t, "expected string, number or property, got %s", describe(t))
	}
}

func (p *Parser) numberLiteral(t Token, sign string) (*NumberLiteral, error) {
	n, err := strconv.ParseInt(sign+t.Value, 10, 64)
	if err != nil {
		return nil, p.errorAt(t, "number %s%s out of range", sign, t.Value)
	}
	return &NumberLiteral{Value: n}, nil
}

func (p *Parser) parseReturn() (*ReturnClause, error) {
	p.advance() // consume RETURN
	r := &ReturnClause{}
	for {
		item, err := p.parseReturnItem()
		if err != nil {
			return nil, err
		}
		r.Items = append(r.Items, item)
		if p.peek().Type != TokComma {
			return r, nil
		}
		p.advance() // consume ,
	}
}

func (p *Parser) parseReturnItem() (ReturnItem, error) {
	expr, err := p.parseOr()
	if err != nil {
		return ReturnItem{}, err
	}
	item := ReturnItem{Expr: expr}

	if p.peek().Type == TokAs {
		p.advance() // consume AS
		aliasTok, err := p.expectName("alias after AS")
		if err != nil {
			return item, err
		}
		item.Alias = aliasTok.Value
	}
	return item, nil
}
