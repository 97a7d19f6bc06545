package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, color.CyanString(logo))
	if title != "" {
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, "─────────────────────")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader(cmd.OutOrStdout(), "cjagent version")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
	},
}
