package main

import (
	"fmt"

	"labelprep/internal/config"
	"labelprep/internal/logging"

	"github.com/spf13/cobra"
)

// cfg загружается в PersistentPreRunE корневой команды
var cfg *config.Config

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "labelprep",
		Short: "Normalize dispensary inventory spreadsheets and prepare label data",
		Long: `labelprep reads an inventory spreadsheet, normalizes product records
(lineage, strain, weight, THC/CBD), reconciles lineage with the strain database
and prepares marker-wrapped label fields for the template renderer.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}
			logging.Setup(loaded.LogLevel, loaded.IsProduction())
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(newLoadCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newLabelsCmd())
	root.AddCommand(newStrainsCmd())
	return root
}
