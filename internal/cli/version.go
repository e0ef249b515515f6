package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anirudhraja/accelite/envelope"
)

// version is set at build time via -ldflags "-X github.com/anirudhraja/accelite/internal/cli.version=x.y.z"
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the accelite version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "accelite version %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "envelope format: v%d\n", envelope.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
