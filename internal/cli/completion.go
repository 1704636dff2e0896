package cli

import (
	"github.com/spf13/cobra"

	"github.com/cmon-dev/cmon/internal/errors"
)

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for cmon.

Examples:
  # Bash
  cmon completion bash > /etc/bash_completion.d/cmon

  # Zsh
  cmon completion zsh > "${fpath[1]}/_cmon"

  # Fish
  cmon completion fish > ~/.config/fish/completions/cmon.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(stdout)
		case "fish":
			return rootCmd.GenFishCompletion(stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(stdout)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
