package cli

import (
	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable <path_or_name>",
	Short: "Disable a configured path in config.yaml",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], false)
	},
}

func init() {
	disableCmd.ValidArgsFunction = completePaths

	rootCmd.AddCommand(disableCmd)
}
