// Package metrics emits CloudWatch Embedded Metrics Format documents for
// pipeline stages. EMF is structured JSON on stdout that CloudWatch turns
// into metrics — no API calls and no client to wire.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Namespace groups every pipeline metric.
const Namespace = "SmartmediaPipeline"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

// Stage accumulates dimensions and values for one stage invocation and
// flushes them as a single EMF document. Not safe for concurrent use;
// create one per invocation.
type Stage struct {
	stage      string
	dimensions map[string]string
	metrics    []metricDef
	values     map[string]any

	out io.Writer
}

// NewStage creates a recorder for the named pipeline stage.
func NewStage(stage string) *Stage {
	return &Stage{
		stage:      stage,
		dimensions: map[string]string{"Stage": stage},
		values:     map[string]any{},
		out:        os.Stdout,
	}
}

// Dimension adds a filterable dimension, e.g. the capability name.
func (s *Stage) Dimension(key, value string) *Stage {
	s.dimensions[key] = value
	return s
}

// Count records a count-unit metric.
func (s *Stage) Count(name string, value int) *Stage {
	return s.metric(name, float64(value), UnitCount)
}

// Duration records elapsed time in milliseconds.
func (s *Stage) Duration(name string, d time.Duration) *Stage {
	return s.metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

func (s *Stage) metric(name string, value float64, unit string) *Stage {
	s.metrics = append(s.metrics, metricDef{Name: name, Unit: unit})
	s.values[name] = value
	return s
}

// Flush writes the EMF document. Flush failures are swallowed: metrics are
// never worth failing an invocation over.
func (s *Stage) Flush() {
	dimNames := make([]string, 0, len(s.dimensions))
	doc := map[string]any{}
	for k, v := range s.dimensions {
		dimNames = append(dimNames, k)
		doc[k] = v
	}
	for k, v := range s.values {
		doc[k] = v
	}
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  Namespace,
			Dimensions: [][]string{dimNames},
			Metrics:    s.metrics,
		}},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return
	}
	fmt.Fprintln(s.out, string(body))
}
