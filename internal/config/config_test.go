package config

import "testing"

func setRequired(t *testing.T) {
	t.Setenv("SMARTMEDIA_INPUT_BUCKET", "input")
	t.Setenv("SMARTMEDIA_OUTPUT_BUCKET", "output")
	t.Setenv("SMARTMEDIA_SQS_URL", "https://sqs.us-east-1.amazonaws.com/1/status")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.InputBucket != "input" || cfg.OutputBucket != "output" {
		t.Errorf("unexpected buckets %+v", cfg)
	}
	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language en-US, got %q", cfg.LanguageCode)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("expected default sample rate 44100, got %d", cfg.SampleRate)
	}
	if cfg.SegmentDuration != "6" {
		t.Errorf("expected default segment duration 6, got %q", cfg.SegmentDuration)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SMARTMEDIA_LANGUAGE_CODE", "fr-FR")
	t.Setenv("SMARTMEDIA_SAMPLE_RATE", "22050")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LanguageCode != "fr-FR" || cfg.SampleRate != 22050 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SMARTMEDIA_INPUT_BUCKET", "input")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing required variables")
	}
}
