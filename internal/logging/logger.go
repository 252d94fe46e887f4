package logging

import (
	"github.com/rs/zerolog"
)

// Init sets the global log level from the configured level string:
// debug, info, warn, error (default: info).
//
// Output stays as zerolog's default JSON writer — CloudWatch ingests one
// JSON document per line, so no console formatting is applied.
func Init(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
