package database

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog/log"
)

// StrainSeedRecord строка CSV-файла с известными штаммами
type StrainSeedRecord struct {
	Name      string `csv:"strain"`
	Lineage   string `csv:"lineage"`
	Sovereign string `csv:"sovereign,omitempty"`
}

// SeedResult результат импорта штаммов
type SeedResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}

// isSovereign интерпретирует колонку sovereign (yes/true/1)
func (r StrainSeedRecord) isSovereign() bool {
	switch strings.ToLower(strings.TrimSpace(r.Sovereign)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// SeedStrainsFromCSV импортирует штаммы из CSV с колонками strain, lineage[, sovereign]
func SeedStrainsFromCSV(ctx context.Context, db *StrainDB, r io.Reader) (*SeedResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	decoder, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}
	decoder.Map = func(field, column string, v any) string {
		return strings.TrimSpace(field)
	}

	result := &SeedResult{Errors: make([]string, 0)}
	for {
		var record StrainSeedRecord
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("failed to decode CSV: %w", err)
		}
		result.Total++

		if record.Name == "" || record.Lineage == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: strain and lineage are required", result.Total))
			continue
		}

		err := Retry(ctx, func() error {
			return db.AddOrUpdateStrain(ctx, record.Name, record.Lineage, record.isSovereign())
		}, DefaultRetryConfig(), "seed_strain")
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %v", result.Total, record.Name, err))
			continue
		}
		result.Success++
	}

	log.Info().Str("component", "strain_db").
		Int("total", result.Total).Int("success", result.Success).Int("errors", len(result.Errors)).
		Msg("strain seed completed")

	return result, nil
}
