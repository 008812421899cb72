package cmd

import (
	"github.com/spf13/cobra"
)

// regionCodes are the two-letter codes used in the all-regions feed. They
// only drive shell completion; --state itself accepts any value.
var regionCodes = []string{
	"AK", "AL", "AR", "AS", "AZ", "CA", "CO", "CT", "DC", "DE", "FL", "GA",
	"GU", "HI", "IA", "ID", "IL", "IN", "KS", "KY", "LA", "MA", "MD", "ME",
	"MI", "MN", "MO", "MP", "MS", "MT", "NC", "ND", "NE", "NH", "NJ", "NM",
	"NV", "NY", "OH", "OK", "OR", "PA", "PR", "RI", "SC", "SD", "TN", "TX",
	"UT", "VA", "VI", "VT", "WA", "WI", "WV", "WY",
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a shell completion script for covidchart.

Besides subcommands and flags, the script completes --state with the
region codes of the all-regions feed and --metric with the metric columns
listed by 'covidchart metrics'.

  source <(covidchart completion bash)
  source <(covidchart completion zsh)
  covidchart completion fish | source

Add the matching line to your shell profile to keep completions in new
shells.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, out := cmd.Root(), cmd.OutOrStdout()
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

// completeState offers region codes for --state.
func completeState(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return regionCodes, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
	_ = rootCmd.RegisterFlagCompletionFunc("state", completeState)
}
