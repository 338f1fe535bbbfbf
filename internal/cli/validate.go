package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/domain/ivr"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <flow-file>",
		Short: "Check a flow for structural and field errors",
		Long: `Reports duplicate ids, unknown node types, dangling pointers, invalid node
configs and loops that never wait for caller input. Unreachable nodes are
reported as warnings. Exits non-zero when the flow could not be saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := readFlow(args[0])
			if err != nil {
				return err
			}
			report := ivr.ValidateModel(flow)
			printReport(cmd.OutOrStdout(), report)
			if !report.Valid {
				return fmt.Errorf("flow %s has %d error(s)", args[0], len(report.Errors))
			}
			return nil
		},
	}
}

func printReport(w io.Writer, r ivr.Report) {
	for _, issue := range r.Errors {
		fmt.Fprintf(w, "❌ %s: %s\n", issue.Path, issue.Message)
	}
	for _, issue := range r.Warnings {
		fmt.Fprintf(w, "⚠️  %s: %s\n", issue.Path, issue.Message)
	}
	if r.Valid {
		fmt.Fprintln(w, "✅ Flow is valid")
	}
}
