package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/check"
	"github.com/sonesuke/docgraph-sub000/internal/output"
)

func newCheckCmd(gf *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "check [PATH]",
		Short: "Check blocks against the node type and relation rules in docgraph.toml",
		Long: "Report blocks with undeclared type prefixes (graph.strict_node_types), " +
			"references that break the min/max rules under [references], and, with " +
			"graph.strict_relations, references to types no rule allows. Exits non-zero " +
			"when any problem is found.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf, pathArg(args, 0))
			if err != nil {
				return err
			}
			defer e.Close()

			g, _, err := e.load(cmd.Context())
			if err != nil {
				return err
			}

			diags := check.Run(g, e.cfg)
			rows := make([][]string, 0, len(diags))
			for _, d := range diags {
				rows = append(rows, []string{d.Code, d.ID, d.File + ":" + strconv.Itoa(d.Line), d.Message})
			}
			if err := output.Write(cmd.OutOrStdout(), format, []string{"code", "id", "location", "message"}, rows); err != nil {
				return err
			}
			if len(diags) > 0 {
				return fmt.Errorf("%d problem(s) found", len(diags))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "Output format: table, json, yaml")
	return cmd
}
