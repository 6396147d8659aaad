package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sonesuke/docgraph-sub000/internal/config"
	"github.com/sonesuke/docgraph-sub000/internal/tools"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

func newShowCmd(gf *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show ID [PATH]",
		Short: "Show one spec block and its references",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, gf, pathArg(args, 1))
			if err != nil {
				return err
			}
			defer e.Close()

			g, _, err := e.load(cmd.Context())
			if err != nil {
				return err
			}
			i, ok := g.Lookup(args[0])
			if !ok {
				return errors.New(tools.NotFoundMessage(g, args[0]))
			}
			d := tools.DescribeBlock(g, i)

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(d, "", "  ")
				if err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			printBlock(out, d, e.cfg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the block as JSON")
	return cmd
}

func printBlock(w io.Writer, d tools.BlockDetail, cfg *config.Config) {
	name := "null"
	if d.Name != nil {
		name = *d.Name
	}
	typ := d.Type
	if nt, ok := cfg.NodeTypes[d.Type]; ok && nt.Desc != "" {
		typ = fmt.Sprintf("%s (%s)", d.Type, nt.Desc)
	}

	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
	}
	fmt.Fprintln(w, titleStyle.Render(d.ID))
	field("Type", typ)
	field("Name", name)
	field("Location", fmt.Sprintf("%s:%d-%d", d.File, d.LineStart, d.LineEnd))
	field("Outgoing", joinOrNone(d.Outgoing))
	field("Incoming", joinOrNone(d.Incoming))
	if len(d.Dangling) > 0 {
		field("Dangling", strings.Join(d.Dangling, ", "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, d.Content)
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
