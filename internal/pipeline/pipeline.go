package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/sonesuke/docgraph-sub000/internal/config"
	"github.com/sonesuke/docgraph-sub000/internal/discover"
	"github.com/sonesuke/docgraph-sub000/internal/extract"
	"github.com/sonesuke/docgraph-sub000/internal/graph"
	"github.com/sonesuke/docgraph-sub000/internal/metrics"
	"github.com/sonesuke/docgraph-sub000/internal/store"
)

// Stats summarizes one indexing pass.
type Stats struct {
	Files     int           `json:"files"`
	Changed   int           `json:"changed"`
	Cached    int           `json:"cached"`
	Removed   int           `json:"removed"`
	Skipped   int           `json:"skipped"`
	Blocks    int           `json:"blocks"`
	Edges     int           `json:"edges"`
	Dangling  int           `json:"dangling"`
	Elapsed   time.Duration `json:"elapsed"`
	StoreUsed bool          `json:"store_used"`
}

// fileResult is the outcome of hashing and (if needed) extracting one file.
type fileResult struct {
	File    discover.FileInfo
	Hash    string
	Blocks  []graph.SpecBlock
	Changed bool
	Err     error
}

// Load discovers the Markdown files under root and builds a graph from them.
// When st is non-nil, files whose content hash is unchanged are served from
// the cache and changed files are written back.
func Load(ctx context.Context, root string, cfg *config.Config, st *store.Store) (*graph.Graph, Stats, error) {
	start := time.Now()
	slog.Info("pipeline.start", "path", root)

	var opts *discover.Options
	if cfg != nil {
		opts = &discover.Options{Ignore: cfg.Graph.Ignore}
	}
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	var stored map[string]string
	if st != nil {
		stored, err = st.FileHashes()
		if err != nil {
			return nil, Stats{}, fmt.Errorf("file hashes: %w", err)
		}
	}

	results, err := processFiles(ctx, files, stored)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Files: len(files), StoreUsed: st != nil}
	if st != nil {
		if err := st.WithTransaction(func(txStore *store.Store) error {
			return syncStore(txStore, results, stored, &stats)
		}); err != nil {
			return nil, Stats{}, fmt.Errorf("persist: %w", err)
		}
	}

	var blocks []graph.SpecBlock
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil:
			stats.Skipped++
		case r.Changed:
			stats.Changed++
		default:
			stats.Cached++
		}
		blocks = append(blocks, r.Blocks...)
	}

	g := graph.New(blocks)
	stats.Blocks = g.Len()
	stats.Edges = g.EdgeCount()
	stats.Dangling = g.DanglingCount()
	stats.Elapsed = time.Since(start)
	metrics.ObserveIndex(stats.Blocks, stats.Elapsed)

	slog.Info("pipeline.done",
		"files", stats.Files, "changed", stats.Changed, "cached", stats.Cached,
		"blocks", stats.Blocks, "edges", stats.Edges, "elapsed", stats.Elapsed)
	return g, stats, nil
}

// processFiles hashes every file and extracts the ones whose hash differs
// from stored. Work is parallelized across CPU cores; results keep the order
// of files. Cached blocks are filled in later by syncStore.
func processFiles(ctx context.Context, files []discover.FileInfo, stored map[string]string) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}
	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = processFile(f, stored)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range results {
		if r := &results[i]; r.Err != nil {
			slog.Warn("pipeline.file.err", "path", r.File.RelPath, "err", r.Err)
		}
	}
	return results, nil
}

func processFile(f discover.FileInfo, stored map[string]string) fileResult {
	r := fileResult{File: f}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Hash = contentHash(data)
	if prev, ok := stored[f.RelPath]; ok && prev == r.Hash {
		return r
	}
	r.Changed = true
	r.Blocks, _ = extract.Extract(string(data), f.RelPath)
	return r
}

// syncStore writes changed files, loads unchanged ones and drops files that
// no longer exist on disk.
func syncStore(st *store.Store, results []fileResult, stored map[string]string, stats *Stats) error {
	current := make(map[string]bool, len(results))
	for i := range results {
		r := &results[i]
		current[r.File.RelPath] = true
		if r.Err != nil {
			continue
		}
		if r.Changed {
			if err := st.SaveFile(r.File.RelPath, r.Hash, r.Blocks); err != nil {
				return err
			}
			continue
		}
		blocks, err := st.LoadFile(r.File.RelPath)
		if err != nil {
			return err
		}
		r.Blocks = blocks
	}

	for relPath := range stored {
		if current[relPath] {
			continue
		}
		if err := st.DeleteFile(relPath); err != nil {
			return err
		}
		stats.Removed++
		slog.Info("incremental.removed", "file", relPath)
	}
	return nil
}

// contentHash returns the hex xxh3 digest of data.
func contentHash(data []byte) string {
	h := xxh3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
