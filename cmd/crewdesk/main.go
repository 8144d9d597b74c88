// Package main is the entry point for the crewdesk CLI.
package main

import (
	"os"

	"github.com/crewdesk/crewdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
