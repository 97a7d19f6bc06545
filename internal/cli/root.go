// Package cli implements the cjagent command line.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/cojourney/cjagent/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"   ____ _                          _\n" +
		"  / ___(_) __ _  __ _  ___ _ __ | |_\n" +
		" | |   | |/ _` |/ _` |/ _ \\ '_ \\| __|\n" +
		" | |___| | (_| | (_| |  __/ | | | |_\n" +
		"  \\____/ |\\__,_|\\__, |\\___|_| |_|\\__|\n" +
		"      |__/      |___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "cjagent",
	Short: "cjagent - conversational introductions agent",
	Long:  color.CyanString(logo) + "\nAn agent that gets to know people and introduces them to each other.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(newUserCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(doctorCmd)
}
