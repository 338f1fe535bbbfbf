package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/domain/ivr"
)

func newTraceCommand() *cobra.Command {
	var (
		at     string
		digits []string
		caller string
	)

	cmd := &cobra.Command{
		Use:   "trace <flow-file>",
		Short: "Simulate a call and show the route it takes",
		Example: `  ivrctl trace flow.yaml --at 2026-03-03T10:00:00-05:00 --digits 2
  ivrctl trace flow.yaml --caller +15551234567`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call := ivr.Call{Digits: digits, Caller: caller, At: time.Now()}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at (RFC 3339 expected): %w", err)
				}
				call.At = t
			}

			flow, err := readFlow(args[0])
			if err != nil {
				return err
			}
			doc, err := ivr.FromModel(flow)
			if err != nil {
				return err
			}
			res, err := ivr.Trace(doc, call, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, step := range res.Steps {
				line := fmt.Sprintf("%2d. [%s] %s", i+1, step.NodeID, step.Action)
				if step.Via != "" {
					line += " (" + step.Via + ")"
				}
				fmt.Fprintln(out, line)
			}
			result := string(res.Outcome)
			if res.Target != "" {
				result += " -> " + res.Target
			}
			fmt.Fprintln(out, "Outcome: "+result)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "call time in RFC 3339 (default: now)")
	cmd.Flags().StringSliceVarP(&digits, "digits", "d", nil, "digits pressed at successive menus, comma separated")
	cmd.Flags().StringVar(&caller, "caller", "", "caller number, visible to hours conditions")
	return cmd
}
