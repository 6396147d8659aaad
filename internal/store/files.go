package store

import (
	"fmt"
)

// FileHashes returns the stored content hash of every cached file.
func (s *Store) FileHashes() (map[string]string, error) {
	rows, err := s.q.Query("SELECT rel_path, hash FROM files")
	if err != nil {
		return nil, fmt.Errorf("get file hashes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		result[path] = hash
	}
	return result, rows.Err()
}

// DeleteFile drops a cached file together with its blocks and edges (CASCADE).
func (s *Store) DeleteFile(relPath string) error {
	_, err := s.q.Exec("DELETE FROM files WHERE rel_path=?", relPath)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", relPath, err)
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Files  int
	Blocks int
	Edges  int
}

// Stats counts cached files, blocks and edges.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.q.QueryRow(`SELECT
		(SELECT COUNT(*) FROM files),
		(SELECT COUNT(*) FROM blocks),
		(SELECT COUNT(*) FROM edge_uses)`).Scan(&st.Files, &st.Blocks, &st.Edges)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
