package cypher

import (
	"strconv"
	"strings"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// nullValue stands in for anything unbound or unknown.
const nullValue = "null"

// complexValue is the projected value of an AND/OR expression.
const complexValue = "complex_expr"

// evaluate reports whether expr holds for b.
func (e *Executor) evaluate(expr Expression, b binding) bool {
	switch x := expr.(type) {
	case *AndExpr:
		for _, op := range x.Operands {
			if !e.evaluate(op, b) {
				return false
			}
		}
		return true
	case *OrExpr:
		for _, op := range x.Operands {
			if e.evaluate(op, b) {
				return true
			}
		}
		return false
	case *Comparison:
		left := e.resolve(x.Left, b)
		if x.Op == OpNone || x.Right == nil {
			return truthy(left)
		}
		return compare(x.Op, left, e.termValue(x.Right, b))
	default:
		return false
	}
}

// evaluateValue renders expr as a projected cell.
func (e *Executor) evaluateValue(expr Expression, b binding) string {
	c, ok := expr.(*Comparison)
	if !ok {
		return complexValue
	}
	if c.Op == OpNone && c.Right == nil {
		return e.resolve(c.Left, b)
	}
	return strconv.FormatBool(e.evaluate(c, b))
}

func truthy(v string) bool {
	return v != "" && v != nullValue
}

// compare applies op to two strings. Ordering is lexicographic by bytes.
func compare(op CompOp, left, right string) bool {
	switch op {
	case OpEq:
		return left == right
	case OpNeq:
		return left != right
	case OpLt:
		return left < right
	case OpGt:
		return left > right
	case OpLte:
		return left <= right
	case OpGte:
		return left >= right
	case OpContains:
		return strings.Contains(left, right)
	default:
		return false
	}
}

func (e *Executor) termValue(t Term, b binding) string {
	switch x := t.(type) {
	case *StringLiteral:
		return x.Value
	case *NumberLiteral:
		return strconv.FormatInt(x.Value, 10)
	case *PropertyRef:
		return e.resolve(x, b)
	default:
		return nullValue
	}
}

// resolve looks up `var` or `var.prop` in b.
func (e *Executor) resolve(ref *PropertyRef, b binding) string {
	if idx, ok := b.nodes[ref.Variable]; ok {
		blk := e.Graph.Block(idx)
		if ref.Property == "" {
			return blk.ID
		}
		return nodeProperty(blk, ref.Property)
	}
	if _, ok := b.rels[ref.Variable]; ok {
		if ref.Property == "" || ref.Property == "type" {
			return relContext
		}
		return nullValue
	}
	return nullValue
}

func nodeProperty(blk *graph.SpecBlock, prop string) string {
	switch prop {
	case "id":
		return blk.ID
	case "node_type", "type":
		return blk.NodeType
	case "name":
		return blk.DisplayName()
	case "file":
		return blk.FilePath
	case "line":
		return strconv.Itoa(blk.LineStart)
	case "content":
		return blk.Content
	default:
		return nullValue
	}
}
