package main

import (
	"errors"
	"fmt"
	"os"

	"labelprep/database"
	"labelprep/normalization"

	"github.com/spf13/cobra"
)

func newStrainsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strains",
		Short: "Inspect and maintain the strain database",
	}
	cmd.AddCommand(newStrainsSeedCmd(), newStrainsGetCmd(), newStrainsSetSovereignCmd())
	return cmd
}

func newStrainsSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <strains.csv>",
		Short: "Import known strains from CSV (columns: strain, lineage[, sovereign])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStrainDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open CSV file: %w", err)
			}
			defer file.Close()

			result, err := database.SeedStrainsFromCSV(cmd.Context(), db, file)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newStrainsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <strain name>",
		Short: "Show what the strain database knows about a strain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStrainDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := db.GetStrainInfo(cmd.Context(), args[0])
			if errors.Is(err, database.ErrStrainNotFound) {
				return fmt.Errorf("strain %q is not in the database", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newStrainsSetSovereignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-sovereign <strain name> <lineage>",
		Short: "Confirm a strain's lineage; it then overrides spreadsheet values for classic types",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineage := normalization.CanonicalLineage(args[1])
			if !normalization.IsKnownLineage(lineage) {
				return fmt.Errorf("unknown lineage %q", args[1])
			}

			db, err := openStrainDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			err = database.Retry(cmd.Context(), func() error {
				return db.SetSovereignLineage(cmd.Context(), args[0], lineage)
			}, database.DefaultRetryConfig(), "set_sovereign_lineage")
			if err != nil {
				return err
			}

			info, err := db.GetStrainInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}
