package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

var validTemplates = []string{"horizontal", "vertical", "double", "mini"}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	if c.StrainDatabasePath == "" {
		errors = append(errors, "strain database path is required")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	if c.MaxUploadBytes < 1 {
		errors = append(errors, "max upload bytes must be positive")
	}
	if c.FileCacheMaxEntries < 1 {
		errors = append(errors, "file cache must hold at least 1 entry")
	}
	if c.ReconcileBatchSize < 1 {
		errors = append(errors, "reconcile batch size must be at least 1")
	}
	if c.ReconcileMinConfidence < 0 || c.ReconcileMinConfidence > 1 {
		errors = append(errors, "reconcile min confidence must be between 0 and 1")
	}

	// Валидация уровня логирования
	if c.LogLevel != "" && !containsFold(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	if c.LabelTemplate != "" && !containsFold(validTemplates, c.LabelTemplate) {
		errors = append(errors, fmt.Sprintf("invalid label template: %s (valid: %s)",
			c.LabelTemplate, strings.Join(validTemplates, ", ")))
	}

	if c.WriteBack != nil {
		if err := c.WriteBack.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("write-back config: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate проверяет корректность конфигурации фоновой записи
func (wc *WriteBackConfig) Validate() error {
	if !wc.Enabled {
		return nil
	}

	var errors []string

	if wc.QueueSize < 1 {
		errors = append(errors, "queue size must be at least 1")
	}
	if wc.RatePerSec <= 0 {
		errors = append(errors, "rate per second must be positive")
	}
	if wc.MaxAttempts < 1 {
		errors = append(errors, "max attempts must be at least 1")
	}
	if wc.InitialDelay <= 0 {
		errors = append(errors, "initial delay must be positive")
	}
	if wc.MaxDelay < wc.InitialDelay {
		errors = append(errors, "max delay cannot be less than initial delay")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}

	return nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Env:                    "development",
		LogLevel:               "INFO",
		StrainDatabasePath:     "strains.db",
		MaxOpenConns:           4,
		MaxIdleConns:           2,
		ConnMaxLifetime:        5 * time.Minute,
		MaxUploadBytes:         50 << 20,
		FileCacheMaxEntries:    5,
		ReconcileBatchSize:     100,
		ReconcileMinConfidence: 0.5,
		LabelTemplate:          "horizontal",
		WriteBack:              GetDefaultWriteBackConfig(),
	}
}

// GetDefaultWriteBackConfig возвращает конфигурацию фоновой записи по умолчанию
func GetDefaultWriteBackConfig() *WriteBackConfig {
	return &WriteBackConfig{
		Enabled:      true,
		QueueSize:    64,
		RatePerSec:   50,
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	}
}
