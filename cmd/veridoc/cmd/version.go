package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/veridoc/internal/version"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		ver, commit, date := version.Info()
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "veridoc %s\n", ver)
		_, _ = fmt.Fprintf(out, "Commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "Built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
