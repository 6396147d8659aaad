package store

import (
	"database/sql"
	"fmt"

	"github.com/sonesuke/docgraph-sub000/internal/graph"
)

// SaveFile replaces everything cached for relPath with blocks. Call it on a
// transaction-scoped Store (see WithTransaction) so a file is never left
// half written.
func (s *Store) SaveFile(relPath, hash string, blocks []graph.SpecBlock) error {
	if err := s.DeleteFile(relPath); err != nil {
		return err
	}
	if _, err := s.q.Exec("INSERT INTO files (rel_path, hash, indexed_at) VALUES (?, ?, ?)",
		relPath, hash, Now()); err != nil {
		return fmt.Errorf("insert file %s: %w", relPath, err)
	}

	for seq := range blocks {
		b := &blocks[seq]
		res, err := s.q.Exec(`
			INSERT INTO blocks (rel_path, seq, block_id, node_type, name, file_path, line_start, line_end, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			relPath, seq, b.ID, b.NodeType, nullable(b.Name), b.FilePath, b.LineStart, b.LineEnd, b.Content)
		if err != nil {
			return fmt.Errorf("insert block %s: %w", b.ID, err)
		}
		row, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("block row id: %w", err)
		}
		for i, e := range b.Edges {
			if _, err := s.q.Exec(`
				INSERT INTO edge_uses (block_row, seq, target_id, name, line, col_start, col_end)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				row, i, e.ID, nullable(e.Name), e.Line, e.ColStart, e.ColEnd); err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", b.ID, e.ID, err)
			}
		}
	}
	return nil
}

// LoadFile returns the cached blocks of relPath in document order. A file
// that was never saved yields no blocks and no error.
func (s *Store) LoadFile(relPath string) ([]graph.SpecBlock, error) {
	rows, err := s.q.Query(`
		SELECT id, block_id, node_type, name, file_path, line_start, line_end, content
		FROM blocks WHERE rel_path=? ORDER BY seq`, relPath)
	if err != nil {
		return nil, fmt.Errorf("load blocks %s: %w", relPath, err)
	}

	var (
		blocks []graph.SpecBlock
		rowIDs []int64
	)
	for rows.Next() {
		var (
			b    graph.SpecBlock
			row  int64
			name sql.NullString
		)
		if err := rows.Scan(&row, &b.ID, &b.NodeType, &name, &b.FilePath, &b.LineStart, &b.LineEnd, &b.Content); err != nil {
			rows.Close()
			return nil, err
		}
		if name.Valid {
			b.Name = graph.StrPtr(name.String)
		}
		blocks = append(blocks, b)
		rowIDs = append(rowIDs, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, row := range rowIDs {
		edges, err := s.loadEdges(row)
		if err != nil {
			return nil, err
		}
		blocks[i].Edges = edges
	}
	return blocks, nil
}

func (s *Store) loadEdges(blockRow int64) ([]graph.EdgeUse, error) {
	rows, err := s.q.Query(`
		SELECT target_id, name, line, col_start, col_end
		FROM edge_uses WHERE block_row=? ORDER BY seq`, blockRow)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.EdgeUse
	for rows.Next() {
		var (
			e    graph.EdgeUse
			name sql.NullString
		)
		if err := rows.Scan(&e.ID, &name, &e.Line, &e.ColStart, &e.ColEnd); err != nil {
			return nil, err
		}
		if name.Valid {
			e.Name = graph.StrPtr(name.String)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
