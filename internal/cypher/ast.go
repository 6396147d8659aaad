package cypher

// Query represents a parsed query.
type Query struct {
	Match  *MatchClause
	Where  *WhereClause // optional
	Return *ReturnClause
}

// MatchClause holds the comma-separated pattern parts of MATCH.
type MatchClause struct {
	Patterns []*PatternPart
}

// PatternPart is one chain: a NodePattern followed by zero or more RelSteps.
type PatternPart struct {
	Elements []PatternElement
}

// PatternElement is either a *NodePattern or a *RelStep.
type PatternElement interface {
	patternElement()
}

// NodePattern matches a block by type.
type NodePattern struct {
	Variable string   // optional
	Labels   []string // any-of; empty matches every block
}

func (*NodePattern) patternElement() {}

// RelStep is a relationship pattern together with the node it leads to.
type RelStep struct {
	Rel  *RelPattern
	Node *NodePattern
}

func (*RelStep) patternElement() {}

// Direction of a relationship pattern.
type Direction int

const (
	DirEither   Direction = iota // -[]-
	DirOutgoing                  // -[]->
	DirIncoming                  // <-[]-
)

func (d Direction) String() string {
	switch d {
	case DirOutgoing:
		return "outgoing"
	case DirIncoming:
		return "incoming"
	default:
		return "either"
	}
}

// RelPattern describes a traversal between two node patterns.
type RelPattern struct {
	Variable  string    // optional
	Type      string    // optional; parsed but not used for matching
	Range     *HopRange // nil means exactly one hop
	Direction Direction
}

// HopRange is an inclusive hop bound. A nil bound means "unspecified":
// Min defaults to 1 and Max to unbounded.
type HopRange struct {
	Min *int
	Max *int
}

// Bounds resolves the hop range of r. max < 0 means unbounded.
func (r *RelPattern) Bounds() (minHops, maxHops int) {
	if r.Range == nil {
		return 1, 1
	}
	minHops, maxHops = 1, -1
	if r.Range.Min != nil {
		minHops = *r.Range.Min
	}
	if r.Range.Max != nil {
		maxHops = *r.Range.Max
	}
	return minHops, maxHops
}

// WhereClause holds the filter expression.
type WhereClause struct {
	Expr Expression
}

// Expression is one of *OrExpr, *AndExpr or *Comparison.
type Expression interface {
	expression()
}

// OrExpr is true if any operand is true.
type OrExpr struct {
	Operands []Expression
}

// AndExpr is true if every operand is true.
type AndExpr struct {
	Operands []Expression
}

// CompOp is a comparison operator. OpNone marks a truthiness test.
type CompOp int

const (
	OpNone CompOp = iota
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpContains
)

func (op CompOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "<>"
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	case OpContains:
		return "CONTAINS"
	default:
		return ""
	}
}

// Comparison is `left op right`, or a bare `left` truthiness test when Op
// is OpNone and Right is nil.
type Comparison struct {
	Left  *PropertyRef
	Op    CompOp
	Right Term
}

func (*OrExpr) expression()     {}
func (*AndExpr) expression()    {}
func (*Comparison) expression() {}

// Term is one of *StringLiteral, *NumberLiteral or *PropertyRef.
type Term interface {
	term()
}

// StringLiteral is a quoted string.
type StringLiteral struct {
	Value string
}

// NumberLiteral is an integer literal.
type NumberLiteral struct {
	Value int64
}

// PropertyRef is `variable` or `variable.property`.
type PropertyRef struct {
	Variable string
	Property string // empty for a bare variable
}

func (*StringLiteral) term() {}
func (*NumberLiteral) term() {}
func (*PropertyRef) term()   {}

// ReturnClause lists the projected items.
type ReturnClause struct {
	Items []ReturnItem
}

// ReturnItem is an expression with an optional alias.
type ReturnItem struct {
	Expr  Expression
	Alias string
}
