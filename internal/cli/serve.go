package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sonesuke/docgraph-sub000/internal/metrics"
	"github.com/sonesuke/docgraph-sub000/internal/pipeline"
	"github.com/sonesuke/docgraph-sub000/internal/tools"
	"github.com/sonesuke/docgraph-sub000/internal/watcher"
)

func newServeCmd(gf *globalFlags, version string) *cobra.Command {
	var (
		watch       bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve [PATH]",
		Short: "Serve the graph to MCP clients over stdio",
		Long: "Load the documents under PATH and expose query_graph, get_block, list_blocks " +
			"and graph_stats as MCP tools on stdin/stdout. With --watch the graph is " +
			"rebuilt when Markdown files change.",
		Example: `  docgraph serve docs --watch --metrics-addr 127.0.0.1:9464`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf, pathArg(args, 0))
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, stats, err := e.load(ctx)
			if err != nil {
				return err
			}
			snap := pipeline.NewSnapshot(nil)
			snap.Store(g, stats)
			srv := tools.NewServer(snap, version)

			grp, gctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				grp.Go(func() error {
					if err := metrics.Serve(gctx, metricsAddr); err != nil {
						return fmt.Errorf("metrics: %w", err)
					}
					return nil
				})
			}
			if watch {
				reload := func(rctx context.Context) error {
					g, stats, err := e.load(rctx)
					if err != nil {
						return err
					}
					snap.Store(g, stats)
					slog.Info("serve.reloaded", "blocks", stats.Blocks)
					return nil
				}
				w := watcher.New(e.root, reload, watcher.WithIgnore(e.cfg.Graph.Ignore))
				grp.Go(func() error {
					w.Run(gctx)
					return nil
				})
			}
			grp.Go(func() error {
				defer stop()
				slog.Info("serve.start", "root", e.root, "blocks", g.Len(), "watch", watch)
				return srv.MCPServer().Run(gctx, &mcp.StdioTransport{})
			})
			return grp.Wait()
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild the graph when documents change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	return cmd
}
