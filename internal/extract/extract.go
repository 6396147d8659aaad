// Package extract turns Markdown documents into spec blocks.
//
// A block opens at an HTML anchor `<a id="ID"></a>` and runs until the next
// anchor or the end of the file. The first heading inside a block names it,
// and links whose destination carries a fragment (`[text](#ID)`,
// `[text](file.md#ID)`, or a reference link resolving to one) become its
// outgoing edges. Documents are parsed as CommonMark with GFM tables, so
// anchors and links inside fenced code, indented code and code spans are
// never seen.
package extract

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// RefUse is a fragment link that appears outside any block.
type RefUse struct {
	TargetID string `json:"target_id"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	ColStart int    `json:"col_start"`
	ColEnd   int    `json:"col_end"`
}

var (
	anchorRe = regexp.MustCompile(`<a\s+id=["']([^"']+)["']`)

	markdown = goldmark.New(goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
	))
)

// openBlock is the block currently being accumulated.
type openBlock struct {
	block graph.SpecBlock
	start int // 0-based anchor line
}

type extractor struct {
	src        []byte
	path       string
	lines      []string
	lineStarts []int // byte offset of each line
	cursor     int   // end of the last link seen
	cur        *openBlock
	blocks     []graph.SpecBlock
	refs       []RefUse
}

// Extract parses content and returns its blocks in document order together
// with the fragment links found outside any block. path is recorded on
// every block and reference as given.
func Extract(content, path string) ([]graph.SpecBlock, []RefUse) {
	x := &extractor{
		src:        []byte(content),
		path:       path,
		lines:      splitLines(content),
		lineStarts: []int{0},
	}
	for i, c := range x.src {
		if c == '\n' {
			x.lineStarts = append(x.lineStarts, i+1)
		}
	}

	doc := markdown.Parser().Parse(text.NewReader(x.src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.HTMLBlock:
			x.htmlBlock(n)
		case *ast.RawHTML:
			if !inHeading(n) {
				x.rawHTML(n)
			}
		case *ast.Heading:
			x.heading(n)
		case *ast.Link:
			x.link(n)
		}
		return ast.WalkContinue, nil
	})
	x.closeBlock(len(x.lines))

	return x.blocks, x.refs
}

// lineOf returns the 0-based line containing offset.
func (x *extractor) lineOf(offset int) int {
	return sort.Search(len(x.lineStarts), func(i int) bool { return x.lineStarts[i] > offset }) - 1
}

// position converts a byte offset to a 1-based line and column.
func (x *extractor) position(offset int) (int, int) {
	line := x.lineOf(offset)
	return line + 1, offset - x.lineStarts[line] + 1
}

func (x *extractor) openBlock(id string, offset int) {
	line := x.lineOf(offset)
	x.closeBlock(line)
	x.cur = &openBlock{
		block: graph.SpecBlock{
			ID:        id,
			NodeType:  graph.NodeTypeOf(id),
			FilePath:  x.path,
			LineStart: line + 1,
		},
		start: line,
	}
}

// closeBlock ends the open block before line index next.
func (x *extractor) closeBlock(next int) {
	if x.cur == nil {
		return
	}
	next = max(min(next, len(x.lines)), x.cur.start)
	x.cur.block.LineEnd = min(next+1, len(x.lines))
	x.cur.block.Content = blockContent(x.lines[x.cur.start:next])
	x.blocks = append(x.blocks, x.cur.block)
	x.cur = nil
}

// anchors opens a block for every anchor in raw, which starts at offset.
func (x *extractor) anchors(raw []byte, offset int) {
	for _, m := range anchorRe.FindAllSubmatchIndex(raw, -1) {
		x.openBlock(string(raw[m[2]:m[3]]), offset+m[0])
	}
}

func (x *extractor) htmlBlock(n *ast.HTMLBlock) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		x.anchors(seg.Value(x.src), seg.Start)
	}
}

func (x *extractor) rawHTML(n *ast.RawHTML) {
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		x.anchors(seg.Value(x.src), seg.Start)
	}
}

// heading opens the blocks of anchors embedded in the heading, then names
// the current block if it has no name yet.
func (x *extractor) heading(h *ast.Heading) {
	var buf strings.Builder
	_ = ast.Walk(h, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.RawHTML:
			x.rawHTML(n)
		case *ast.Text:
			buf.Write(n.Segment.Value(x.src))
		case *ast.String:
			buf.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})

	if x.cur == nil || x.cur.block.Name != nil {
		return
	}
	if name := headingName(buf.String(), x.cur.block.ID); name != "" {
		x.cur.block.Name = graph.StrPtr(name)
	}
}

func (x *extractor) link(n *ast.Link) {
	target, ok := fragment(string(n.Destination))
	if !ok {
		return
	}
	start, labelEnd, end, ok := x.linkSpan(n)
	if !ok {
		return
	}
	line, colStart := x.position(start)
	_, colEnd := x.position(end)

	if x.cur == nil {
		x.refs = append(x.refs, RefUse{
			TargetID: target,
			FilePath: x.path,
			Line:     line,
			ColStart: colStart,
			ColEnd:   colEnd,
		})
		return
	}
	edge := graph.EdgeUse{
		ID:       target,
		Line:     line,
		ColStart: colStart,
		ColEnd:   colEnd,
	}
	if label := string(x.src[start+1 : labelEnd]); label != "" {
		edge.Name = graph.StrPtr(label)
	}
	x.cur.block.Edges = append(x.cur.block.Edges, edge)
}

// linkSpan locates a link in the source: the offset of its opening '[',
// of the ']' closing the label, and just past the destination or
// reference label that follows.
func (x *extractor) linkSpan(n *ast.Link) (start, labelEnd, end int, ok bool) {
	first, last := labelBounds(n)
	if first < 0 {
		// Empty label: the next "[]" after the previous link.
		i := bytes.Index(x.src[x.cursor:], []byte("[]"))
		if i < 0 {
			return 0, 0, 0, false
		}
		start = x.cursor + i
		labelEnd = start + 1
	} else {
		start = bytes.LastIndexByte(x.src[:first], '[')
		j := bytes.IndexByte(x.src[last:], ']')
		if start < 0 || j < 0 {
			return 0, 0, 0, false
		}
		labelEnd = last + j
	}

	end = labelEnd + 1
	if end < len(x.src) {
		switch x.src[end] {
		case '(':
			end = closingParen(x.src, end)
		case '[':
			if j := bytes.IndexByte(x.src[end:], ']'); j >= 0 {
				end += j + 1
			}
		}
	}
	x.cursor = end
	return start, labelEnd, end, true
}

// labelBounds returns the source range covered by the text inside a link
// label, or -1 when the label is empty.
func labelBounds(n *ast.Link) (int, int) {
	first, last := -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var seg text.Segment
		switch c := c.(type) {
		case *ast.Text:
			seg = c.Segment
		case *ast.RawHTML:
			if c.Segments.Len() == 0 {
				return ast.WalkContinue, nil
			}
			seg = c.Segments.At(0)
			seg.Stop = c.Segments.At(c.Segments.Len() - 1).Stop
		default:
			return ast.WalkContinue, nil
		}
		if first < 0 || seg.Start < first {
			first = seg.Start
		}
		last = max(last, seg.Stop)
		return ast.WalkContinue, nil
	})
	return first, last
}

// closingParen returns the offset just past the ')' matching the '(' at
// open, or the end of that line if it is unbalanced.
func closingParen(src []byte, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\n':
			return i
		}
	}
	return len(src)
}

func inHeading(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.Heading); ok {
			return true
		}
	}
	return false
}

// fragment returns the id after the first '#' of a link destination.
func fragment(dest string) (string, bool) {
	_, id, ok := strings.Cut(dest, "#")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// splitLines splits on newlines, dropping carriage returns and the empty
// element after a trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// headingName strips a leading copy of the block id from heading text.
func headingName(heading, id string) string {
	heading = strings.TrimSpace(heading)
	if rest, ok := strings.CutPrefix(heading, id); ok && (rest == "" || rest[0] == ' ' || rest[0] == ':') {
		heading = strings.TrimLeft(rest, " :")
	}
	return strings.TrimSpace(heading)
}

func blockContent(lines []string) string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
