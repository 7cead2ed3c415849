package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds the flags shared by every command
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool

	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags registers the persistent flags on the root command
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&globalFlags.ConfigFile, "config", "", "config file (default is $XDG_CONFIG_HOME/bulkops/config.yaml)")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "always show progress bars")
	flags.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "suppress non-error output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	flags.StringVar(&globalFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	flags.StringVar(&globalFlags.LogFormat, "log-format", "", "log format: text, json")
	flags.StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error (enables logging)")
	cmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions([]string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp))
	cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions([]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))
}
