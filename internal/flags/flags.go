// Package flags decodes the per-object "processes" metadata value: a
// fixed-width bit-string written at upload time that selects which analysis
// services run for that object. Positions are significant by index — the
// producer and this decoder must agree on the table.
package flags

import (
	"errors"
	"fmt"
)

// ErrMalformedConfig reports a flag string that is too short for the
// position table or contains characters outside {0,1}.
var ErrMalformedConfig = errors.New("malformed service flag string")

// Service names a single analysis capability toggled by the flag string.
type Service string

const (
	Transcribe Service = "transcribe"
	Labels     Service = "labels"
	Moderation Service = "moderation"
	Faces      Service = "faces"
	People     Service = "people"
	Sentiment  Service = "sentiment"
	KeyPhrases Service = "keyphrases"
	Entities   Service = "entities"
)

// PositionTable maps a bit position in the flag string to a service.
type PositionTable map[int]Service

// DefaultPositions is the production flag layout. Appending a service means
// appending a position; existing positions must never be renumbered, since
// flag strings already attached to stored objects encode this layout.
var DefaultPositions = PositionTable{
	0: Transcribe,
	1: Labels,
	2: Moderation,
	3: Faces,
	4: People,
	5: Sentiment,
	6: KeyPhrases,
	7: Entities,
}

// Config is the decoded per-object service selection.
type Config map[Service]bool

// Enabled reports whether the named service was switched on.
func (c Config) Enabled(s Service) bool {
	return c[s]
}

// Any reports whether at least one service was switched on. Dispatchers use
// this to short-circuit a stage that has nothing to do.
func (c Config) Any() bool {
	for _, on := range c {
		if on {
			return true
		}
	}
	return false
}

// Decode parses a flag string against a position table. The string must
// cover every position in the table and contain only '0' and '1'.
func Decode(raw string, table PositionTable) (Config, error) {
	maxPos := 0
	for pos := range table {
		if pos > maxPos {
			maxPos = pos
		}
	}
	if len(raw) < maxPos+1 {
		return nil, fmt.Errorf("%w: %d characters, need %d", ErrMalformedConfig, len(raw), maxPos+1)
	}
	for i, c := range raw {
		if c != '0' && c != '1' {
			return nil, fmt.Errorf("%w: character %q at position %d", ErrMalformedConfig, c, i)
		}
	}

	cfg := make(Config, len(table))
	for pos, service := range table {
		cfg[service] = raw[pos] == '1'
	}
	return cfg, nil
}
