package cypher

// Plan is the ordered list of matching steps for a query, followed by the
// projection. Steps run in pattern order; there is no reordering.
type Plan struct {
	Steps      []PlanStep
	ReturnSpec *ReturnClause
}

// PlanStep is a single step in the execution plan.
type PlanStep interface {
	stepType() string
}

// ScanNodes crosses every binding with every block matching the pattern.
type ScanNodes struct {
	Pattern *NodePattern
}

func (*ScanNodes) stepType() string { return "scan" }

// ExpandRelationship runs a bounded BFS from the block bound to FromVar.
type ExpandRelationship struct {
	FromVar string
	Rel     *RelPattern
	To      *NodePattern
}

func (*ExpandRelationship) stepType() string { return "expand" }

// SkipRelationship stands in for a relationship whose start node has no
// variable. It leaves bindings untouched and reports a warning.
type SkipRelationship struct {
	Rel *RelPattern
	To  *NodePattern
}

func (*SkipRelationship) stepType() string { return "skip" }

// FilterWhere keeps the bindings for which Expr holds.
type FilterWhere struct {
	Expr Expression
}

func (*FilterWhere) stepType() string { return "filter" }

// BuildPlan converts a parsed Query AST into an execution Plan.
func BuildPlan(q *Query) (*Plan, error) {
	if q.Match == nil {
		return nil, &StructuralError{Err: ErrMissingMatch}
	}
	if q.Return == nil {
		return nil, &StructuralError{Err: ErrMissingReturn}
	}

	plan := &Plan{ReturnSpec: q.Return}
	for _, part := range q.Match.Patterns {
		prevVar := ""
		for _, el := range part.Elements {
			switch e := el.(type) {
			case *NodePattern:
				plan.Steps = append(plan.Steps, &ScanNodes{Pattern: e})
				prevVar = e.Variable
			case *RelStep:
				// An unanchored relationship binds nothing, so the rest of
				// the chain has no start node either.
				if prevVar == "" {
					plan.Steps = append(plan.Steps, &SkipRelationship{Rel: e.Rel, To: e.Node})
					continue
				}
				plan.Steps = append(plan.Steps, &ExpandRelationship{FromVar: prevVar, Rel: e.Rel, To: e.Node})
				prevVar = e.Node.Variable
			}
		}
	}

	if q.Where != nil {
		plan.Steps = append(plan.Steps, &FilterWhere{Expr: q.Where.Expr})
	}
	return plan, nil
}
