package database

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultRetryAttempts количество попыток повтора по умолчанию
	DefaultRetryAttempts = 5
	// DefaultRetryDelay задержка между попытками по умолчанию
	DefaultRetryDelay = 100 * time.Millisecond
	// MaxRetryDelay максимальная задержка между попытками
	MaxRetryDelay = 2 * time.Second
)

// RetryConfig конфигурация для retry логики
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // Множитель для экспоненциальной задержки
}

// DefaultRetryConfig возвращает конфигурацию retry по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: DefaultRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   2.0,
	}
}

// RetryableFunc функция, которую можно повторить при ошибке
type RetryableFunc func() error

// IsLockedError проверяет, что ошибка вызвана блокировкой файла SQLite.
// Повторяются только такие ошибки, остальные считаются постоянными.
func IsLockedError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, retryable := range []string{"database is locked", "database table is locked", "sqlite_busy"} {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}

// Retry выполняет функцию с повтором при блокировке БД.
// Задержка растет экспоненциально и ограничена MaxDelay.
func Retry(ctx context.Context, fn RetryableFunc, config RetryConfig, operationName string) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Multiplier <= 1 {
		config.Multiplier = 2.0
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().Str("component", "strain_db").Str("operation", operationName).
					Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !IsLockedError(err) {
			return err
		}

		if attempt == config.MaxAttempts {
			log.Error().Err(err).Str("component", "strain_db").Str("operation", operationName).
				Int("attempts", config.MaxAttempts).Msg("operation failed after max attempts")
			break
		}

		log.Warn().Err(err).Str("component", "strain_db").Str("operation", operationName).
			Int("attempt", attempt).Int("max_attempts", config.MaxAttempts).
			Dur("retry_in", delay).Msg("database locked, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return lastErr
}
