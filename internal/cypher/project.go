package cypher

// nodeFields are the columns a bare node variable expands into, in order.
var nodeFields = []string{"id", "type", "name", "file", "line", "content"}

// projection is how one RETURN item turns into cells.
type projection struct {
	expr    Expression
	nodeVar string // set when the item expands a whole node
}

func (e *Executor) projectResults(bindings []binding, ret *ReturnClause) *Result {
	var cols []string
	projs := make([]projection, 0, len(ret.Items))

	for _, item := range ret.Items {
		if item.Alias != "" {
			cols = append(cols, item.Alias)
			projs = append(projs, projection{expr: item.Expr})
			continue
		}
		c, ok := item.Expr.(*Comparison)
		switch {
		case ok && c.Op == OpNone && c.Right == nil && c.Left.Property != "":
			cols = append(cols, c.Left.Variable+"."+c.Left.Property)
			projs = append(projs, projection{expr: item.Expr})
		case ok && c.Op == OpNone && c.Right == nil:
			for _, f := range nodeFields {
				cols = append(cols, c.Left.Variable+"."+f)
			}
			projs = append(projs, projection{nodeVar: c.Left.Variable})
		default:
			cols = append(cols, "expression")
			projs = append(projs, projection{expr: item.Expr})
		}
	}

	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		row := make([]string, 0, len(cols))
		for _, p := range projs {
			if p.nodeVar == "" {
				row = append(row, e.evaluateValue(p.expr, b))
				continue
			}
			row = append(row, e.expandNode(p.nodeVar, b)...)
		}
		rows = append(rows, row)
	}

	return &Result{Columns: cols, Rows: rows}
}

// expandNode returns the six standard cells for v, or six "null" cells when
// v is not bound to a block.
func (e *Executor) expandNode(v string, b binding) []string {
	idx, ok := b.nodes[v]
	if !ok {
		cells := make([]string, len(nodeFields))
		for i := range cells {
			cells[i] = nullValue
		}
		return cells
	}
	blk := e.Graph.Block(idx)
	cells := make([]string, 0, len(nodeFields))
	for _, f := range nodeFields {
		cells = append(cells, nodeProperty(blk, f))
	}
	return cells
}
