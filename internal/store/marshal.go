package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/weave/internal/opt"
)

// marshalStats converts optimizer statistics to JSON TEXT for storage.
// Struct fields encode in declaration order, so equal stats give equal
// text.
func marshalStats(stats opt.Stats) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(stats); err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalStats parses JSON TEXT produced by marshalStats.
func unmarshalStats(data string) (opt.Stats, error) {
	var stats opt.Stats
	if data == "" {
		return stats, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&stats); err != nil {
		return opt.Stats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}
