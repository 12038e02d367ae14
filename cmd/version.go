package cmd

import (
	"fmt"
	"strings"

	"github.com/itsmostafa/scriptbridge/internal/engine"
	"github.com/itsmostafa/scriptbridge/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and available languages",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "scriptbridge %s\n", version.String())
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("languages:"), strings.Join(engine.Languages(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
