package main

import (
	"github.com/gammadia/awsrun/catalog"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish"},

	// Completion scripts need neither configuration nor logging
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return awsrunCmd.GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return awsrunCmd.GenZshCompletion(cmd.OutOrStdout())
		default:
			return awsrunCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		}
	},
}

// completeLaunchArgs suggests instance types for the second positional argument.
func completeLaunchArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 1 {
		return catalog.Names(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	completionCmd.Args = cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)
	awsrunCmd.ValidArgsFunction = completeLaunchArgs
}
