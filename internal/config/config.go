package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config конфигурация приложения подготовки этикеток
type Config struct {
	Env      string `json:"env"`
	LogLevel string `json:"log_level"`

	// База штаммов
	StrainDatabasePath string        `json:"strain_database_path"`
	MaxOpenConns       int           `json:"max_open_conns"`
	MaxIdleConns       int           `json:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`

	// Загрузка файлов
	MaxUploadBytes      int64 `json:"max_upload_bytes"`
	FileCacheMaxEntries int   `json:"file_cache_max_entries"`

	// Сверка линий с базой штаммов
	ReconcileBatchSize     int     `json:"reconcile_batch_size"`
	ReconcileMinConfidence float64 `json:"reconcile_min_confidence"`

	// Исключения для отдельных товарных линеек (пустой путь = встроенная таблица)
	ExceptionsPath string `json:"exceptions_path"`

	// Шаблон этикеток по умолчанию
	LabelTemplate string `json:"label_template"`

	WriteBack *WriteBackConfig `json:"write_back"`
}

// WriteBackConfig конфигурация фоновой записи штаммов
type WriteBackConfig struct {
	Enabled      bool          `json:"enabled"`
	QueueSize    int           `json:"queue_size"`
	RatePerSec   float64       `json:"rate_per_sec"`
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env, если он есть, читается первым.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	defaults := GetDefaults()

	config := &Config{
		Env:      getEnv("ENV", defaults.Env),
		LogLevel: getEnv("LOG_LEVEL", defaults.LogLevel),

		StrainDatabasePath: getEnv("STRAIN_DATABASE_PATH", defaults.StrainDatabasePath),
		MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", defaults.MaxOpenConns),
		MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", defaults.MaxIdleConns),
		ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", defaults.ConnMaxLifetime),

		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", int(defaults.MaxUploadBytes))),
		FileCacheMaxEntries: getEnvInt("FILE_CACHE_MAX_ENTRIES", defaults.FileCacheMaxEntries),

		ReconcileBatchSize:     getEnvInt("RECONCILE_BATCH_SIZE", defaults.ReconcileBatchSize),
		ReconcileMinConfidence: getEnvFloat("RECONCILE_MIN_CONFIDENCE", defaults.ReconcileMinConfidence),

		ExceptionsPath: getEnv("EXCEPTIONS_PATH", defaults.ExceptionsPath),
		LabelTemplate:  getEnv("LABEL_TEMPLATE", defaults.LabelTemplate),

		WriteBack: LoadWriteBackConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadWriteBackConfig загружает конфигурацию фоновой записи штаммов
func LoadWriteBackConfig() *WriteBackConfig {
	defaults := GetDefaultWriteBackConfig()
	return &WriteBackConfig{
		Enabled:      getEnvBool("STRAIN_WRITEBACK_ENABLED", defaults.Enabled),
		QueueSize:    getEnvInt("STRAIN_WRITEBACK_QUEUE_SIZE", defaults.QueueSize),
		RatePerSec:   getEnvFloat("STRAIN_WRITEBACK_RATE_PER_SEC", defaults.RatePerSec),
		MaxAttempts:  getEnvInt("STRAIN_WRITEBACK_MAX_ATTEMPTS", defaults.MaxAttempts),
		InitialDelay: getEnvDuration("STRAIN_WRITEBACK_INITIAL_DELAY", defaults.InitialDelay),
		MaxDelay:     getEnvDuration("STRAIN_WRITEBACK_MAX_DELAY", defaults.MaxDelay),
	}
}

// IsProduction сообщает, запущено ли приложение в production окружении
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
