// Package config loads the pipeline's environment configuration. Every
// Lambda shares one Config; fields a given Lambda does not use stay empty.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment wiring shared by the pipeline Lambdas.
type Config struct {
	// InputBucket holds uploaded source objects and their metadata.
	InputBucket string `env:"SMARTMEDIA_INPUT_BUCKET,required"`

	// OutputBucket holds renditions and metadata artifacts.
	OutputBucket string `env:"SMARTMEDIA_OUTPUT_BUCKET,required"`

	// SQSQueueURL is the status event queue consumed by the upstream system.
	SQSQueueURL string `env:"SMARTMEDIA_SQS_URL,required"`

	// PipelineID is the Elastic Transcoder pipeline jobs are created on.
	PipelineID string `env:"SMARTMEDIA_PIPELINE_ID"`

	// SNSTopicARN receives Rekognition completion notifications.
	SNSTopicARN string `env:"SMARTMEDIA_SNS_TOPIC_ARN"`

	// RekognitionRoleARN is assumed by Rekognition to publish completions.
	RekognitionRoleARN string `env:"SMARTMEDIA_REKOGNITION_ROLE_ARN"`

	LanguageCode    string `env:"SMARTMEDIA_LANGUAGE_CODE" envDefault:"en-US"`
	SampleRate      int32  `env:"SMARTMEDIA_SAMPLE_RATE" envDefault:"44100"`
	SegmentDuration string `env:"SMARTMEDIA_SEGMENT_DURATION" envDefault:"6"`

	LogLevel string `env:"SMARTMEDIA_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
