// Package analyze runs the text-analytics capabilities over a completed
// transcript: sentiment, key phrases, and entities, each gated by its own
// service flag and persisted as its own artifact.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"

	"github.com/smartmedia/aws-pipeline/internal/flags"
)

// Client is the subset of the Comprehend API the pipeline calls.
type Client interface {
	DetectSentiment(ctx context.Context, in *comprehend.DetectSentimentInput, opts ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
	DetectKeyPhrases(ctx context.Context, in *comprehend.DetectKeyPhrasesInput, opts ...func(*comprehend.Options)) (*comprehend.DetectKeyPhrasesOutput, error)
	DetectEntities(ctx context.Context, in *comprehend.DetectEntitiesInput, opts ...func(*comprehend.Options)) (*comprehend.DetectEntitiesOutput, error)
}

// Detection is one registered text-analytics operation.
type Detection struct {
	// API is the operation name used as the status event process tag.
	API string

	// ResultField names the persisted artifact (<key>/metadata/<ResultField>.json).
	ResultField string

	// Service is the flag position gating this detection.
	Service flags.Service

	run func(ctx context.Context, c Client, text string, lang types.LanguageCode) (any, error)
}

// Detections is the registered text-analytics table, in execution order.
var Detections = []Detection{
	{
		API:         "DetectSentiment",
		ResultField: "Sentiment",
		Service:     flags.Sentiment,
		run: func(ctx context.Context, c Client, text string, lang types.LanguageCode) (any, error) {
			return c.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
				Text:         aws.String(text),
				LanguageCode: lang,
			})
		},
	},
	{
		API:         "DetectKeyPhrases",
		ResultField: "KeyPhrases",
		Service:     flags.KeyPhrases,
		run: func(ctx context.Context, c Client, text string, lang types.LanguageCode) (any, error) {
			return c.DetectKeyPhrases(ctx, &comprehend.DetectKeyPhrasesInput{
				Text:         aws.String(text),
				LanguageCode: lang,
			})
		},
	},
	{
		API:         "DetectEntities",
		ResultField: "Entities",
		Service:     flags.Entities,
		run: func(ctx context.Context, c Client, text string, lang types.LanguageCode) (any, error) {
			return c.DetectEntities(ctx, &comprehend.DetectEntitiesInput{
				Text:         aws.String(text),
				LanguageCode: lang,
			})
		},
	},
}

// Run executes the detection against text.
func (d Detection) Run(ctx context.Context, c Client, text string, lang types.LanguageCode) (any, error) {
	result, err := d.run(ctx, c, text, lang)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.API, err)
	}
	return result, nil
}

// Enabled filters the table down to the detections cfg switches on.
func Enabled(cfg flags.Config) []Detection {
	var out []Detection
	for _, d := range Detections {
		if cfg.Enabled(d.Service) {
			out = append(out, d)
		}
	}
	return out
}

// LanguageCode converts a transcription locale like "en-US" to the primary
// subtag Comprehend expects ("en").
func LanguageCode(locale string) types.LanguageCode {
	lang, _, _ := strings.Cut(locale, "-")
	return types.LanguageCode(strings.ToLower(lang))
}

// transcriptDocument is the subset of the transcription service's result
// document the pipeline reads.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ExtractTranscriptText pulls the plain transcript text out of a completed
// transcription document. An empty string means nothing was spoken.
func ExtractTranscriptText(doc []byte) (string, error) {
	var td transcriptDocument
	if err := json.Unmarshal(doc, &td); err != nil {
		return "", fmt.Errorf("decode transcript document: %w", err)
	}

	parts := make([]string, 0, len(td.Results.Transcripts))
	for _, tr := range td.Results.Transcripts {
		if tr.Transcript != "" {
			parts = append(parts, tr.Transcript)
		}
	}
	return strings.Join(parts, " "), nil
}
