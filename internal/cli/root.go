// Package cli implements the crewdesk command-line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version can be overridden at build time via:
// go build -ldflags "-X github.com/crewdesk/crewdesk/internal/cli.version=1.2.3"
var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "crewdesk",
	Short: "CrewDesk - HR assistant with human-approved writes",
	Long: color.CyanString("CrewDesk") + " answers employee HR questions and never changes " +
		"a record without an explicit human approval.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crewdesk %s\n", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(seedCmd)
}
