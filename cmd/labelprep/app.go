package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"labelprep/database"
	"labelprep/importer"
	"labelprep/internal/config"
	"labelprep/internal/workers"
	"labelprep/normalization"

	"github.com/rs/zerolog/log"
)

// app собранный конвейер одного запуска команды
type app struct {
	cfg       *config.Config
	db        *database.StrainDB
	writer    *workers.StrainWriter
	processor *normalization.Processor
}

// processorOptions переводит конфигурацию в параметры конвейера
func processorOptions(cfg *config.Config, exceptions *normalization.ExceptionTable) normalization.Options {
	opts := normalization.DefaultOptions()
	opts.MaxFileBytes = cfg.MaxUploadBytes
	opts.ReconcileBatchSize = cfg.ReconcileBatchSize
	opts.ReconcileMinConfidence = cfg.ReconcileMinConfidence
	opts.Exceptions = exceptions
	return opts
}

// writerConfig переводит конфигурацию фоновой записи в параметры очереди
func writerConfig(wb *config.WriteBackConfig) workers.StrainWriterConfig {
	retry := database.DefaultRetryConfig()
	retry.MaxAttempts = wb.MaxAttempts
	retry.InitialDelay = wb.InitialDelay
	retry.MaxDelay = wb.MaxDelay

	return workers.StrainWriterConfig{
		QueueSize:  wb.QueueSize,
		RatePerSec: wb.RatePerSec,
		Retry:      retry,
	}
}

// openStrainDB открывает базу штаммов по конфигурации
func openStrainDB(cfg *config.Config) (*database.StrainDB, error) {
	return database.NewStrainDBWithConfig(cfg.StrainDatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

// newApp собирает конвейер. Недоступная база штаммов не мешает загрузке:
// линии остаются как в файле.
func newApp(ctx context.Context, cfg *config.Config, withStrainDB bool) (*app, error) {
	exceptions, err := normalization.LoadExceptionTable(cfg.ExceptionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load exception table: %w", err)
	}

	a := &app{cfg: cfg}
	deps := normalization.Dependencies{
		Reader: importer.ReadInventoryFile,
		Cache:  normalization.NewFileCache(cfg.FileCacheMaxEntries),
	}

	if withStrainDB {
		db, err := openStrainDB(cfg)
		if err != nil {
			log.Warn().Err(err).Str("component", "strain_db").Str("path", cfg.StrainDatabasePath).
				Msg("strain database unavailable, using spreadsheet lineage")
		} else {
			a.db = db
			deps.Store = db
			if cfg.WriteBack.Enabled {
				a.writer = workers.NewStrainWriter(db, writerConfig(cfg.WriteBack))
				a.writer.Start(ctx)
				deps.Sink = a.writer
			}
		}
	}

	a.processor = normalization.NewProcessor(processorOptions(cfg, exceptions), deps)
	return a, nil
}

// Close дожидается фоновой записи и закрывает базу
func (a *app) Close() {
	if a.writer != nil {
		a.writer.Close()
		stats := a.writer.Stats()
		log.Debug().Str("component", "strain_writer").
			Int64("written", stats.Written).Int64("failed", stats.Failed).Int64("dropped", stats.Dropped).
			Msg("write-back finished")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Str("component", "strain_db").Msg("failed to close strain database")
		}
	}
}

// load загружает файл; ошибка загрузки возвращается вызывающему
func (a *app) load(ctx context.Context, path string) (*normalization.LoadSummary, error) {
	summary, err := a.processor.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Info().Str("load_id", summary.LoadID).Int("records", summary.Records).
		Int("fallback_rows", summary.FallbackRows).Bool("cache_hit", summary.CacheHit).
		Dur("duration", summary.Duration).Msg("inventory loaded")
	return summary, nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
