package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/vaultsess/internal/config"
	"github.com/systmms/vaultsess/pkg/session"
)

// NewCompletionCommand creates the completion command for generating shell completions.
func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for vaultsess.

Bash:
  $ source <(vaultsess completion bash)

Zsh:
  $ vaultsess completion zsh > "${fpath[1]}/_vaultsess"

Fish:
  $ vaultsess completion fish | source

PowerShell:
  PS> vaultsess completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// CompleteBackends offers the backend names for --backend.
func CompleteBackends(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(session.Backends()))
	for _, b := range session.Backends() {
		names = append(names, string(b))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
