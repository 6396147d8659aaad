package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/cypher"
	"github.com/sonesuke/docgraph-sub000/internal/output"
)

func newQueryCmd(gf *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query QUERY [PATH]",
		Short: "Run a Cypher-style query over the documents under PATH",
		Long: "Run a MATCH ... [WHERE ...] RETURN ... query over the spec blocks found under PATH " +
			"(default: current directory). Labels select blocks by ID prefix; relationships " +
			"follow document links and accept hop ranges such as -[*1..3]->.",
		Example: `  # Requirements reachable from a use case within two hops
  docgraph query 'MATCH (u:UC)-[*1..2]->(f:FR) RETURN u.id, f.id, f.name' docs

  # JSON output
  docgraph query 'MATCH (n:FR) WHERE n.name <> "null" RETURN n' --format json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			q, err := cypher.Parse(query)
			if err != nil {
				return errors.New(cypher.Describe(err, query))
			}

			e, err := setup(cmd, gf, pathArg(args, 1))
			if err != nil {
				return err
			}
			defer e.Close()

			g, _, err := e.load(cmd.Context())
			if err != nil {
				return err
			}

			exec := &cypher.Executor{Graph: g}
			res, err := exec.Run(q)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			for _, w := range res.Warnings {
				slog.Warn("query.warning", "msg", w)
			}
			return output.Write(cmd.OutOrStdout(), format, res.Columns, res.Rows)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "Output format: table, json, yaml")
	return cmd
}
