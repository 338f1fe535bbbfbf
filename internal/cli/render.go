package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/domain/ivr"
	"github.com/nexora/backend/pkg/constants"
)

func newRenderCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "render <flow-file>",
		Short: "Draw the flow canvas as text, Mermaid or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := readFlow(args[0])
			if err != nil {
				return err
			}
			doc, err := ivr.FromModel(flow)
			if err != nil {
				return err
			}
			canvas := ivr.BuildCanvas(doc)

			out := cmd.OutOrStdout()
			switch format {
			case constants.FormatText:
				fmt.Fprint(out, ivr.RenderText(canvas))
			case constants.FormatMermaid:
				fmt.Fprint(out, ivr.RenderMermaid(canvas))
			case constants.FormatJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(canvas)
			default:
				return fmt.Errorf("unknown format %q (text, mermaid or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", constants.FormatText, "output format (text|mermaid|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{constants.FormatText, constants.FormatMermaid, constants.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
