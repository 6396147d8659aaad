package graph

import "strings"

// SpecBlock is one anchored section of the document corpus.
type SpecBlock struct {
	ID        string    `json:"id"`
	NodeType  string    `json:"node_type"`
	Name      *string   `json:"name,omitempty"`
	Edges     []EdgeUse `json:"edges,omitempty"`
	FilePath  string    `json:"file_path"`
	LineStart int       `json:"line_start"` // 1-based
	LineEnd   int       `json:"line_end"`   // 1-based
	Content   string    `json:"content"`
}

// EdgeUse is an outgoing reference embedded in the owning block. The target
// need not exist.
type EdgeUse struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Line     int     `json:"line"`
	ColStart int     `json:"col_start"`
	ColEnd   int     `json:"col_end"`
}

// NodeTypeOf derives a block type from its identifier prefix ("FR-001" -> "FR").
func NodeTypeOf(id string) string {
	if i := strings.IndexAny(id, "-_"); i >= 0 {
		return id[:i]
	}
	return id
}

// DisplayName returns the block name or "null" when absent.
func (b *SpecBlock) DisplayName() string {
	if b.Name == nil {
		return "null"
	}
	return *b.Name
}

// StrPtr is a small helper for optional names.
func StrPtr(s string) *string {
	return &s
}
