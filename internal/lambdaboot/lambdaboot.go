// Package lambdaboot provides the shared Lambda cold-start bootstrap.
//
// Every Lambda in the pipeline needs the same opening moves: parse the
// environment configuration, set the log level, load AWS config, and emit a
// consolidated startup log. This package extracts those so each Lambda's
// init() is a short composition of helpers plus its own client wiring.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog/log"

	"github.com/smartmedia/aws-pipeline/internal/config"
	"github.com/smartmedia/aws-pipeline/internal/logging"
)

// Boot parses the environment, initializes logging, and loads the default
// AWS config. Fatals on any failure; a Lambda without configuration cannot
// do useful work.
func Boot() (*config.Config, aws.Config) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", awsCfg.Region).Msg("AWS config loaded")
	return cfg, awsCfg
}

// StartupLog is a convenience wrapper for the consolidated cold-start log.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
