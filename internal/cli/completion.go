package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ontograph/pkg/export"
)

// snapshotExts are the file extensions offered for snapshot arguments.
var snapshotExts = []string{"json", "yaml", "yml"}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ontograph.

Snapshot arguments complete to .json, .yaml and .yml files and --format
completes to the export formats.

Bash:
  $ source <(ontograph completion bash)

Zsh:
  $ ontograph completion zsh > "${fpath[1]}/_ontograph"

Fish:
  $ ontograph completion fish > ~/.config/fish/completions/ontograph.fish

PowerShell:
  PS> ontograph completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeSnapshot completes the single snapshot argument to snapshot files.
func completeSnapshot(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return snapshotExts, cobra.ShellCompDirectiveFilterFileExt
}

// completeFormats completes a comma-separated format list, offering the
// formats not already given.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	used := make(map[string]bool)
	for _, f := range strings.Split(prefix, ",") {
		used[f] = true
	}
	var out []string
	for _, f := range export.Formats {
		if !used[f] {
			out = append(out, prefix+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
