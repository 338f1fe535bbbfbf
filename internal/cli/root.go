// Package cli implements ivrctl, the offline tool for IVR flow files.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/nexora/backend/internal/config"
)

// Version information (set at build time).
var Version = "0.1.0"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "ivrctl",
		Short: "ivrctl - IVR flow tooling",
		Long: `ivrctl edits, checks and previews IVR call flows stored as YAML or JSON
files, and runs the few server-side chores that need no HTTP API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+")")

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		config.LoadDotEnv()
		return config.Load(cfgFile, cmd.Flags())
	}

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newNodeCommand())
	rootCmd.AddCommand(newTraceCommand())
	rootCmd.AddCommand(newNodeTypesCommand())
	rootCmd.AddCommand(newSampleCommand())
	rootCmd.AddCommand(newTokenCommand(loadConfig))
	rootCmd.AddCommand(newMigrateCommand(loadConfig))

	return rootCmd
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)
