package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryptodial/cryptodial/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cryptodial %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.Date)
	},
}
