package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	var noStrainDB bool

	cmd := &cobra.Command{
		Use:   "load <inventory.xlsx>",
		Short: "Load a spreadsheet and print the load summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, !noStrainDB)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().BoolVar(&noStrainDB, "no-strain-db", false, "skip lineage reconciliation and write-back")
	return cmd
}

func newTagsCmd() *cobra.Command {
	var filters bool

	cmd := &cobra.Command{
		Use:   "tags <inventory.xlsx>",
		Short: "Print available tags or filter options of a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.load(cmd.Context(), args[0]); err != nil {
				return err
			}
			if filters {
				return writeJSON(cmd.OutOrStdout(), a.processor.FilterOptions())
			}

			tags := a.processor.AvailableTags()
			if len(tags) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no tags available")
			}
			return writeJSON(cmd.OutOrStdout(), tags)
		},
	}

	cmd.Flags().BoolVar(&filters, "filters", false, "print distinct filter values instead of tags")
	return cmd
}
