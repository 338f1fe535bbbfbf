package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/domain/ivr"
)

func newNodeTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "node-types",
		Short: "List the node types a flow may use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tLABEL\tFIELDS\tDESCRIPTION")
			for _, md := range ivr.Types() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", md.Type, md.Label, strings.Join(md.Fields, ","), md.Description)
			}
			return tw.Flush()
		},
	}
}

func newSampleCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the built-in sample flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return encodeFlow(cmd.OutOrStdout(), ivr.SampleFlow(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	return cmd
}
