package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/output"
	"github.com/sonesuke/docgraph-sub000/internal/tools"
)

func newListCmd(gf *globalFlags) *cobra.Command {
	var (
		prefix string
		format string
	)
	cmd := &cobra.Command{
		Use:   "list [PATH]",
		Short: "List spec blocks in ID order",
		Example: `  # Every functional requirement
  docgraph list docs --prefix FR`,
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

			blocks := tools.ListBlocks(g, prefix, 0)
			rows := make([][]string, 0, len(blocks))
			for _, b := range blocks {
				rows = append(rows, []string{b.ID, b.Type, b.Name, fmt.Sprintf("%s:%d", b.File, b.Line)})
			}
			return output.Write(cmd.OutOrStdout(), format, []string{"id", "type", "name", "location"}, rows)
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Only list blocks whose ID starts with this prefix")
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatTable, "Output format: table, json, yaml")
	return cmd
}
