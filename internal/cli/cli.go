// Package cli implements the docgraph command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/config"
	"github.com/sonesuke/docgraph-sub000/internal/graph"
	"github.com/sonesuke/docgraph-sub000/internal/logging"
	"github.com/sonesuke/docgraph-sub000/internal/pipeline"
	"github.com/sonesuke/docgraph-sub000/internal/store"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	logLevel  string
	logFormat string
	logFile   string
	noCache   bool
}

// NewRootCmd builds the command tree. version is reported by the version
// subcommand and the MCP server.
func NewRootCmd(version string) *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:   "docgraph",
		Short: "Query the reference graph of anchored Markdown spec blocks",
		Long: "docgraph indexes Markdown documents into a graph of spec blocks " +
			"(sections opened by <a id=\"...\"></a> anchors) and the links between them, " +
			"and answers Cypher-style MATCH ... WHERE ... RETURN queries over it.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gf.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	pf.StringVar(&gf.logFormat, "log-format", "", "Console log format: text or json (default from config)")
	pf.StringVar(&gf.logFile, "log-file", "", "Also write JSON logs to this rotated file")
	pf.BoolVar(&gf.noCache, "no-cache", false, "Do not read or write the block cache")

	root.AddCommand(
		newQueryCmd(gf),
		newListCmd(gf),
		newShowCmd(gf),
		newCheckCmd(gf),
		newServeCmd(gf, version),
		newConfigCmd(gf),
		newVersionCmd(version),
	)
	return root
}

// Execute runs the command tree against os.Args and reports a failure on
// stderr.
func Execute(version string) error {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// env is the per-invocation state built from a target path.
type env struct {
	cfg    *config.Config
	root   string
	store  *store.Store
	closer io.Closer
}

// setup loads the configuration for target, applies flag overrides and
// installs the logger. The returned env must be closed.
func setup(cmd *cobra.Command, gf *globalFlags, target string) (*env, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path %s is not a directory", target)
	}

	cfg, err := config.Load(abs)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = gf.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = gf.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = gf.logFile
	}
	if flags.Changed("no-cache") && gf.noCache {
		cfg.Cache.Enabled = false
	}

	closer, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, root: abs, closer: closer}, nil
}

// open opens the block cache when it is enabled.
func (e *env) open() error {
	if !e.cfg.Cache.Enabled || e.store != nil {
		return nil
	}
	st, err := store.OpenPath(e.cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	e.store = st
	return nil
}

// load builds the graph for the env's root.
func (e *env) load(ctx context.Context) (*graph.Graph, pipeline.Stats, error) {
	if err := e.open(); err != nil {
		return nil, pipeline.Stats{}, err
	}
	return pipeline.Load(ctx, e.root, e.cfg, e.store)
}

func (e *env) Close() error {
	if e.store != nil {
		_ = e.store.Close()
	}
	return e.closer.Close()
}

// pathArg returns args[i] or "." when absent.
func pathArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}
