package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"labelprep/labels"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLabelsCmd() *cobra.Command {
	var (
		selected   []string
		selectFile string
		all        bool
		template   string
		format     string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "labels <inventory.xlsx>",
		Short: "Prepare label fields for selected products or for the whole file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if template == "" {
				template = cfg.LabelTemplate
			}
			tmpl, err := labels.ParseTemplate(template)
			if err != nil {
				return err
			}

			if selectFile != "" {
				names, err := readSelection(selectFile)
				if err != nil {
					return err
				}
				selected = append(selected, names...)
			}
			if !all && len(selected) == 0 {
				return errors.New("nothing selected: pass --select, --select-file or --all")
			}

			a, err := newApp(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.load(cmd.Context(), args[0]); err != nil {
				return err
			}

			gen := labels.NewGenerator(a.processor, labels.NewFieldBuilder(a.processor.Exceptions()), tmpl)
			var result *labels.Result
			if all {
				result, err = gen.All()
			} else {
				result, err = gen.ForSelection(selected)
			}
			if err != nil {
				return fmt.Errorf("failed to prepare labels: %w", err)
			}

			if output == "" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if err := labels.NewExporter().Export(labels.ExportFormat(format), output, result); err != nil {
				return err
			}
			log.Info().Str("component", "selector").Str("output", output).Str("format", format).
				Int("labels", len(result.Labels)).Int("pages", len(result.Pages)).Msg("labels exported")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&selected, "select", nil, "selected product name, repeatable, kept in order")
	cmd.Flags().StringVar(&selectFile, "select-file", "", "file with one selected product name per line")
	cmd.Flags().BoolVar(&all, "all", false, "generate labels for every record, ordered by lineage")
	cmd.Flags().StringVar(&template, "template", "", "label template: horizontal, vertical, double, mini (default LABEL_TEMPLATE)")
	cmd.Flags().StringVar(&format, "format", string(labels.FormatJSON), "export format: json, csv, excel")
	cmd.Flags().StringVarP(&output, "output", "o", "", "export file (stdout JSON when empty)")
	return cmd
}

// readSelection читает выбранные названия, по одному в строке
func readSelection(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open selection file: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read selection file: %w", err)
	}
	return names, nil
}
