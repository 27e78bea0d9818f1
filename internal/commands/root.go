package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/pricesplit/internal/buildinfo"
	"github.com/cleared-dev/pricesplit/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "pricesplit",
		Short:   "Authoritative bill prices and split allocation",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.FileName, "config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
	flags.StringVar(&a.auditFile, "audit-file", "", "append reported events to this CSV file (default from config)")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newInitCommand(),
		newSplitCommand(a),
		newCheckCommand(a),
		newResolveCommand(a),
	)

	return rootCmd
}
