package cli

import (
	"fmt"
	"strings"

	"github.com/davarch/ci-dashboard/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <path_or_name>",
	Short: "Enable a configured path in config.yaml",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args[0], true)
	},
}

func init() {
	enableCmd.ValidArgsFunction = completePaths

	rootCmd.AddCommand(enableCmd)
}

// setEnabled flips every entry whose path or name equals key.
func setEnabled(key string, enabled bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	changed := false
	for i := range cfg.Poll.Paths {
		p := &cfg.Poll.Paths[i]
		if p.Path != key && p.Name != key {
			continue
		}
		if p.Enabled != enabled {
			p.Enabled = enabled
			changed = true
		}
	}

	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}

	if !changed {
		fmt.Printf("no change (path %q already %s or not found)\n", key, verb)
		return nil
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", verb, key)
	return nil
}

func completePaths(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(cfg.Poll.Paths))
	for _, p := range cfg.Poll.Paths {
		if strings.HasPrefix(p.Path, toComplete) {
			out = append(out, p.Path)
		}
	}

	return out, cobra.ShellCompDirectiveNoFileComp
}
