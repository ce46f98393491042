package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process root logger. It is called once per binary; handlers
// and services derive scoped loggers from it with With().
func New() zerolog.Logger {
	// Cloud Logging parses the level automatically when the field is named
	// "severity".
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		// Human-readable output and debug noise for local runs only.
		return logger.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	}
	return logger.Level(zerolog.InfoLevel)
}
