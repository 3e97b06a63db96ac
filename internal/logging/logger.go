package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel переводит уровень из конфигурации в уровень zerolog.
// Пустое или неизвестное значение дает INFO.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup настраивает глобальный логгер
func Setup(level string, production bool) {
	SetupWithWriter(level, production, os.Stderr)
}

// SetupWithWriter настраивает глобальный логгер с указанным выводом
func SetupWithWriter(level string, production bool, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if production {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
}
