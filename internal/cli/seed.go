package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/crewdesk/crewdesk/internal/config"
	"github.com/crewdesk/crewdesk/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the local database with demo HR data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		if err := store.Seed(db); err != nil {
			return fmt.Errorf("seed store: %w", err)
		}
		color.Green("seeded %s", cfg.Store.Path)
		return nil
	},
}
