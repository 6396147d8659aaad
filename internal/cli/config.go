package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/config"
)

func newConfigCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [PATH]",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf, pathArg(args, 0))
			if err != nil {
				return err
			}
			defer e.Close()

			data, err := config.Encode(e.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if e.cfg.File != "" {
				fmt.Fprintf(out, "# Configuration file: %s\n", e.cfg.File)
			} else {
				fmt.Fprintln(out, "# No configuration file found; showing defaults")
			}
			fmt.Fprint(out, string(data))
			return nil
		},
	})
	return cmd
}
