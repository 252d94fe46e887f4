package logging

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects a Lambda's identity and resource wiring and emits a
// single structured event summarising the cold-start state, so the exact
// configuration of an invocation can be read off one CloudWatch line.
type StartupLogger struct {
	name         string
	initDuration time.Duration

	buckets   map[string]string
	queues    map[string]string
	topics    map[string]string
	pipelines map[string]string
	config    map[string]string
}

// NewStartupLogger creates a StartupLogger for the given Lambda name
// (e.g. "transcode-trigger-lambda").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:      name,
		buckets:   make(map[string]string),
		queues:    make(map[string]string),
		topics:    make(map[string]string),
		pipelines: make(map[string]string),
		config:    make(map[string]string),
	}
}

// InitDuration records how long cold-start initialization took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// Bucket registers an S3 bucket used by this Lambda.
func (s *StartupLogger) Bucket(label, name string) *StartupLogger {
	s.buckets[label] = name
	return s
}

// Queue registers an SQS queue URL used by this Lambda.
func (s *StartupLogger) Queue(label, url string) *StartupLogger {
	s.queues[label] = url
	return s
}

// Topic registers an SNS topic ARN used by this Lambda.
func (s *StartupLogger) Topic(label, arn string) *StartupLogger {
	s.topics[label] = arn
	return s
}

// Pipeline registers a transcode pipeline id used by this Lambda.
func (s *StartupLogger) Pipeline(label, id string) *StartupLogger {
	s.pipelines[label] = id
	return s
}

// Config registers a miscellaneous configuration value.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// Log emits the consolidated startup event at info level.
func (s *StartupLogger) Log() {
	ev := log.Info().
		Str("lambda", s.name).
		Str("goVersion", runtime.Version()).
		Dur("initDuration", s.initDuration)

	ev = dictOf(ev, "buckets", s.buckets)
	ev = dictOf(ev, "queues", s.queues)
	ev = dictOf(ev, "topics", s.topics)
	ev = dictOf(ev, "pipelines", s.pipelines)
	ev = dictOf(ev, "config", s.config)

	ev.Msg("Lambda cold start")
}

func dictOf(ev *zerolog.Event, key string, m map[string]string) *zerolog.Event {
	if len(m) == 0 {
		return ev
	}
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return ev.Dict(key, d)
}
